package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background maintenance work.
type Job interface {
	Name() string
	// Schedule is a cron spec such as "@every 10m". Empty means on-demand only.
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctx:  context.Background(),
		jobs: make(map[string]Job),
	}
}

// Register adds job and, when it has a schedule, arms it.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}

	if spec := job.Schedule(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
		}
		log.Printf("[jobs] %s scheduled with %q", job.Name(), spec)
	} else {
		log.Printf("[jobs] %s registered as on-demand job", job.Name())
	}

	s.jobs[job.Name()] = job
	return nil
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := job.Run(ctx); err != nil {
		log.Printf("[jobs] %s failed: %v", job.Name(), err)
	}
}

// Trigger runs a registered job immediately on the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return job.Run(ctx)
}

// Start runs the cron loop until ctx is cancelled. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	count := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[jobs] scheduler started with %d jobs", count)

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		log.Println("[jobs] scheduler stopped")
	}()
}
