package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic promotion runs
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	log      *slog.Logger
}

// New creates a new scheduler with the given timezone
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		log:      slog.With(slog.String("component", "scheduler")),
	}, nil
}

// AddJob adds a job with a cron schedule
// schedule format: "0 9 * * 1" (at 9:00 AM on Mondays)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		s.log.Info("starting job", "name", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.Error("job failed", "name", name, "error", err)
		} else {
			s.log.Info("job completed", "name", name, "took", time.Since(start))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info("added job", "name", name, "schedule", schedule)

	return nil
}

// AddPromotionJob adds a recurring promotion run at a specific time of day.
// timeStr format: "09:00"
func (s *Scheduler) AddPromotionJob(name, timeStr string, job Job) error {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}

	schedule := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	return s.AddJob(name, schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Info("removed job", "name", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() context.Context {
	s.log.Info("stopping scheduler")
	return s.cron.Stop()
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}
