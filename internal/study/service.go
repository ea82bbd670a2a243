// Package study runs the weekly study lifecycle: scheduling, publishing and
// bulk import.
package study

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/store"
)

// Notifier is told about studies as they are published
type Notifier interface {
	StudyPublished(study *store.WeeklyStudy)
}

// Draft is a study as submitted by an admin. Schedule may be RFC 3339, a
// date or natural language; empty means the next Wednesday.
type Draft struct {
	store.WeeklyStudyInput `yaml:",inline"`
	Schedule               string `json:"scheduled_date" yaml:"scheduled_date"`
}

// DraftUpdate is a partial update with an optional new schedule
type DraftUpdate struct {
	store.WeeklyStudyUpdate
	Schedule *string `json:"scheduled_date"`
}

// Service coordinates study scheduling and publication
type Service struct {
	studies  *store.StudyRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a study service. notifier may be nil.
func NewService(studies *store.StudyRepository, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		studies:  studies,
		notifier: notifier,
		logger:   logger.Named("study"),
		now:      time.Now,
	}
}

// ResolveSchedule turns a draft schedule into a publication time
func (s *Service) ResolveSchedule(text string) (time.Time, error) {
	now := s.now().UTC()
	if text == "" {
		return NextWednesday(now), nil
	}
	t, err := ParseSchedule(text, now)
	if err != nil {
		ve := &store.ValidationError{}
		ve.Add("scheduled_date", err.Error())
		return time.Time{}, ve
	}
	return t, nil
}

// Create stores a new study, defaulting its schedule to the next Wednesday
func (s *Service) Create(ctx context.Context, d Draft) (*store.WeeklyStudy, error) {
	scheduled, err := s.ResolveSchedule(d.Schedule)
	if err != nil {
		return nil, err
	}
	in := d.WeeklyStudyInput
	in.ScheduledDate = scheduled

	created, err := s.studies.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("study created",
		zap.Int64("study_id", created.ID),
		zap.String("title", created.Title),
		zap.Time("scheduled_date", created.ScheduledDate),
		zap.Bool("published", created.Published),
	)
	if created.Published {
		s.announce(created)
	}
	return created, nil
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, id int64, d DraftUpdate) (*store.WeeklyStudy, error) {
	upd := d.WeeklyStudyUpdate
	if d.Schedule != nil {
		scheduled, err := s.ResolveSchedule(*d.Schedule)
		if err != nil {
			return nil, err
		}
		upd.ScheduledDate = &scheduled
	}
	return s.studies.Update(ctx, id, upd)
}

// Publish publishes a study immediately. Subscribers hear about a study
// only the first time it is published.
func (s *Service) Publish(ctx context.Context, id int64) (*store.WeeklyStudy, error) {
	published, changed, err := s.studies.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Debug("study already published", zap.Int64("study_id", id))
		return published, nil
	}
	s.logger.Info("study published", zap.Int64("study_id", id))
	s.announce(published)
	return published, nil
}

// PublishDue publishes every study scheduled at or before now and returns
// how many were published
func (s *Service) PublishDue(ctx context.Context, now time.Time) (int, error) {
	published, err := s.studies.PublishDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("publish due studies: %w", err)
	}

	for _, st := range published {
		s.logger.Info("published scheduled study", zap.Int64("study_id", st.ID), zap.String("title", st.Title))
		s.announce(st)
	}
	if len(published) == 0 {
		s.logger.Debug("no studies due")
	}
	return len(published), nil
}

// Upcoming lists unpublished studies by scheduled date; limit defaults to 5
func (s *Service) Upcoming(ctx context.Context, limit int) ([]*store.WeeklyStudy, error) {
	return s.studies.Upcoming(ctx, limit)
}

// RunDue is a job body for the background scheduler
func (s *Service) RunDue(ctx context.Context) error {
	_, err := s.PublishDue(ctx, s.now())
	return err
}

func (s *Service) announce(st *store.WeeklyStudy) {
	if s.notifier != nil {
		s.notifier.StudyPublished(st)
	}
}
