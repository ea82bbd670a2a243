package study

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/faithdive/faithdive/internal/store"
)

// ImportFile is the YAML layout accepted by Import
//
//	studies:
//	  - title: Faith in Times of Trouble
//	    description: ...
//	    verse_references: [Psalm 23:4]
//	    bible_version: WEB
//	    bible_id: 9879dbb7cfe39e4d-04
//	    scheduled_date: next wednesday 9am
type ImportFile struct {
	Studies []Draft `yaml:"studies"`
}

// DecodeImport reads an import file
func DecodeImport(r io.Reader) (*ImportFile, error) {
	var file ImportFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("decode study import: %w", err)
	}
	return &file, nil
}

// Import creates every study in r. Studies are validated up front so a bad
// entry imports nothing.
func (s *Service) Import(ctx context.Context, r io.Reader) ([]*store.WeeklyStudy, error) {
	file, err := DecodeImport(r)
	if err != nil {
		return nil, err
	}

	for i, d := range file.Studies {
		scheduled, err := s.ResolveSchedule(d.Schedule)
		if err != nil {
			return nil, fmt.Errorf("study %d (%s): %w", i+1, d.Title, err)
		}
		in := d.WeeklyStudyInput
		in.ScheduledDate = scheduled
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("study %d (%s): %w", i+1, d.Title, err)
		}
	}

	created := make([]*store.WeeklyStudy, 0, len(file.Studies))
	for _, d := range file.Studies {
		st, err := s.Create(ctx, d)
		if err != nil {
			return created, err
		}
		created = append(created, st)
	}
	return created, nil
}
