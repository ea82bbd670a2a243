package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/faithdive/faithdive/internal/cli/ui"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/study"
)

const scheduleLayout = "Mon Jan 2 2006 15:04 MST"

// NewStudiesCommand creates the studies command
func NewStudiesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studies",
		Short: "Manage weekly studies",
		Long: `Create, import, schedule and publish weekly community studies.

Studies are published automatically by the server's scheduler when their
scheduled date arrives. These commands work directly against the database
and are safe to run while the server is up.`,
	}

	cmd.AddCommand(newStudiesUpcomingCommand(opts))
	cmd.AddCommand(newStudiesPublishCommand(opts))
	cmd.AddCommand(newStudiesPublishDueCommand(opts))
	cmd.AddCommand(newStudiesImportCommand(opts))
	cmd.AddCommand(newStudiesNewCommand(opts))
	cmd.AddCommand(newStudiesNextWednesdayCommand(opts))

	return cmd
}

func newStudiesUpcomingCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List scheduled studies that are not yet published",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupCommand(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer env.Close()

			svc := study.NewService(store.NewStudyRepository(env.db), nil, env.logger)
			studies, err := svc.Upcoming(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(studies) == 0 {
				ui.Info(out, opts.noColor, "No upcoming studies")
				return nil
			}
			table := ui.NewTable(out, opts.noColor, "ID", "Title", "Scheduled", "Verses")
			for _, s := range studies {
				table.AddRow(
					strconv.FormatInt(s.ID, 10),
					s.Title,
					s.ScheduledDate.UTC().Format(scheduleLayout),
					strings.Join(s.VerseReferences, "; "),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of studies to list")

	return cmd
}

func newStudiesPublishCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a study now, regardless of its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid study id %q", args[0])
			}

			env, err := setupCommand(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer env.Close()

			svc := study.NewService(store.NewStudyRepository(env.db), nil, env.logger)
			s, err := svc.Publish(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("publish study %d: %w", id, err)
			}
			ui.Success(cmd.OutOrStdout(), opts.noColor, "Published %q", s.Title)
			return nil
		},
	}
}

func newStudiesPublishDueCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Publish every study whose scheduled date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupCommand(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer env.Close()

			svc := study.NewService(store.NewStudyRepository(env.db), nil, env.logger)
			n, err := svc.PublishDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if n == 0 {
				ui.Info(cmd.OutOrStdout(), opts.noColor, "No studies due")
				return nil
			}
			ui.Success(cmd.OutOrStdout(), opts.noColor, "Published %d studies", n)
			return nil
		},
	}
}

func newStudiesImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create studies from a YAML file",
		Long: `Create studies from a YAML file. Every entry is validated before any
study is created.

  studies:
    - title: Faith in Times of Trouble
      description: How faith sustains us
      verse_references: [Psalm 23:4, Isaiah 41:10]
      bible_version: WEB
      bible_id: 9879dbb7cfe39e4d-04
      study_questions: [What does it mean to fear no evil?]
      scheduled_date: next wednesday 9am`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			env, err := setupCommand(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer env.Close()

			svc := study.NewService(store.NewStudyRepository(env.db), nil, env.logger)
			out := cmd.OutOrStdout()
			var created []*store.WeeklyStudy
			err = ui.WithSpinner(out, "Importing studies", opts.noColor, func() error {
				created, err = svc.Import(cmd.Context(), f)
				return err
			})
			if err != nil {
				if len(created) > 0 {
					ui.Warn(cmd.ErrOrStderr(), opts.noColor, "%d studies were created before the failure", len(created))
				}
				return err
			}

			table := ui.NewTable(out, opts.noColor, "ID", "Title", "Scheduled")
			for _, s := range created {
				table.AddRow(strconv.FormatInt(s.ID, 10), s.Title, s.ScheduledDate.UTC().Format(scheduleLayout))
			}
			table.Render()
			return nil
		},
	}
}

// newStudyFlags holds the non-interactive inputs of "studies new"
type newStudyFlags struct {
	title       string
	description string
	verses      []string
	version     string
	bibleID     string
	questions   []string
	notes       string
	schedule    string
}

func newStudiesNewCommand(opts *globalOptions) *cobra.Command {
	flags := &newStudyFlags{}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a study interactively or from flags",
		Long: `Create a weekly study. Without --title the command prompts for each
field. The schedule accepts RFC 3339, a date (published at 09:00 UTC) or
natural language such as "next wednesday 9am"; empty means next Wednesday.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var draft study.Draft
			if flags.title != "" {
				draft = flags.draft()
			} else {
				var err error
				if draft, err = promptDraft(); err != nil {
					return err
				}
			}

			env, err := setupCommand(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer env.Close()

			svc := study.NewService(store.NewStudyRepository(env.db), nil, env.logger)
			s, err := svc.Create(cmd.Context(), draft)
			if err != nil {
				return describeValidation(err)
			}
			ui.Success(cmd.OutOrStdout(), opts.noColor, "Created study %d %q, scheduled for %s",
				s.ID, s.Title, s.ScheduledDate.UTC().Format(scheduleLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.title, "title", "", "study title")
	cmd.Flags().StringVar(&flags.description, "description", "", "study description")
	cmd.Flags().StringArrayVar(&flags.verses, "verse", nil, "verse reference (repeatable)")
	cmd.Flags().StringVar(&flags.version, "bible-version", "WEB", "translation abbreviation")
	cmd.Flags().StringVar(&flags.bibleID, "bible-id", "", "API.Bible translation id")
	cmd.Flags().StringArrayVar(&flags.questions, "question", nil, "study question (repeatable)")
	cmd.Flags().StringVar(&flags.notes, "notes", "", "leader notes")
	cmd.Flags().StringVar(&flags.schedule, "schedule", "", "publication time")

	return cmd
}

func (f *newStudyFlags) draft() study.Draft {
	d := study.Draft{Schedule: f.schedule}
	d.Title = f.title
	d.Description = f.description
	d.VerseReferences = f.verses
	d.BibleVersion = f.version
	d.BibleID = f.bibleID
	d.StudyQuestions = f.questions
	if f.notes != "" {
		notes := f.notes
		d.StudyNotes = &notes
	}
	return d
}

func promptDraft() (study.Draft, error) {
	answers := struct {
		Title       string
		Description string
		Verses      string
		Version     string
		BibleID     string `survey:"bible_id"`
		Questions   string
		Schedule    string
	}{}

	questions := []*survey.Question{
		{Name: "title", Prompt: &survey.Input{Message: "Title:"}, Validate: survey.Required},
		{Name: "description", Prompt: &survey.Multiline{Message: "Description:"}, Validate: survey.Required},
		{Name: "verses", Prompt: &survey.Input{Message: "Verse references (separated by ;):", Help: "e.g. John 3:16; Psalm 23:1-4"}, Validate: survey.Required},
		{Name: "version", Prompt: &survey.Input{Message: "Bible version:", Default: "WEB"}, Validate: survey.Required},
		{Name: "bible_id", Prompt: &survey.Input{Message: "API.Bible id:"}, Validate: survey.Required},
		{Name: "questions", Prompt: &survey.Multiline{Message: "Study questions (one per line):"}},
		{Name: "schedule", Prompt: &survey.Input{Message: "Publish at:", Default: "next wednesday 9am"}},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return study.Draft{}, err
	}

	d := study.Draft{Schedule: answers.Schedule}
	d.Title = answers.Title
	d.Description = answers.Description
	d.VerseReferences = splitList(answers.Verses, ";")
	d.BibleVersion = answers.Version
	d.BibleID = answers.BibleID
	d.StudyQuestions = splitList(answers.Questions, "\n")
	return d, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newStudiesNextWednesdayCommand(opts *globalOptions) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "next-wednesday",
		Short: "Show when a study created now would be published by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := time.Now().UTC()
			if from != "" {
				t, err := time.Parse("2006-01-02T15:04", from)
				if err != nil {
					return fmt.Errorf("--from must look like 2006-01-02T15:04: %w", err)
				}
				base = t
			}
			fmt.Fprintln(cmd.OutOrStdout(), study.NextWednesday(base).Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "reference time in UTC (2006-01-02T15:04)")

	return cmd
}

// describeValidation flattens field errors into one readable error
func describeValidation(err error) error {
	var ve *store.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve.Fields))
	for field, msgs := range ve.Fields {
		fields = append(fields, field+": "+strings.Join(msgs, ", "))
	}
	sort.Strings(fields)
	return fmt.Errorf("invalid study: %s", strings.Join(fields, "; "))
}
