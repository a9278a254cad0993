package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opengrove/groupfeed/internal/logx"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID
}

// New creates a new scheduler
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]cron.EntryID),
	}
}

// AddJob adds a job with a cron schedule
// schedule format: "*/5 * * * *" or "@every 5m"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		logx.Info.Printf("[scheduler] Starting job: %s", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			logx.Warn.Printf("[scheduler] Job %s failed: %v", name, err)
		} else {
			logx.Info.Printf("[scheduler] Job %s completed in %v", name, time.Since(start))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	logx.Info.Printf("[scheduler] Added job: %s (schedule: %s)", name, schedule)

	return nil
}

// AddRefreshJob adds a feed refresh job on a minute interval
func (s *Scheduler) AddRefreshJob(name string, intervalMinutes int, job Job) error {
	if intervalMinutes < 1 {
		intervalMinutes = 5
	}
	schedule := fmt.Sprintf("@every %dm", intervalMinutes)
	return s.AddJob(name, schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		logx.Info.Printf("[scheduler] Removed job: %s", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	logx.Info.Printf("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() context.Context {
	logx.Info.Printf("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logx.Info.Printf("[scheduler] Running job now: %s", name)
	return job(ctx)
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

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
