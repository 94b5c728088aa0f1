package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// JobFunc is one run of a recurring job. The context carries the run
// deadline; the function must return when it is done or cancelled.
type JobFunc func(ctx context.Context)

// JobStatus describes a registered job for status reporting.
type JobStatus struct {
	ID       string        `json:"id"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
}

type job struct {
	id       string
	interval time.Duration
	fn       JobFunc
	stopCh   chan struct{}
	running  atomic.Bool
}

// Scheduler drives recurring jobs on fixed intervals. A job never runs
// concurrently with a prior invocation of the same job id; distinct jobs
// may overlap. Stopping prevents future fires without aborting in-flight
// runs.
type Scheduler struct {
	mu         sync.Mutex
	jobs       map[string]*job
	runTimeout time.Duration
	started    bool
	stopped    bool
}

// New creates a scheduler. runTimeout bounds every run so a stuck remote
// call cannot block a job id's next fire forever.
func New(runTimeout time.Duration) *Scheduler {
	if runTimeout == 0 {
		runTimeout = 10 * time.Minute
	}
	return &Scheduler{
		jobs:       make(map[string]*job),
		runTimeout: runTimeout,
	}
}

// Register adds a recurring job. Re-registering an id replaces the
// previous registration and cancels its pending fires.
func (s *Scheduler) Register(id string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[id]; ok {
		close(prev.stopCh)
		log.Printf("[Scheduler] Job %s re-registered, previous registration cancelled", id)
	}

	j := &job{
		id:       id,
		interval: interval,
		fn:       fn,
		stopCh:   make(chan struct{}),
	}
	s.jobs[id] = j

	if s.started && !s.stopped {
		go s.loop(j)
	}
}

// Start begins firing all registered jobs on their intervals.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	for _, j := range s.jobs {
		go s.loop(j)
	}
	log.Printf("[Scheduler] Started with %d jobs", len(s.jobs))
}

// Stop prevents all future fires. In-flight runs are left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	for _, j := range s.jobs {
		close(j.stopCh)
	}
	log.Printf("[Scheduler] Stopped")
}

// RunNow fires a job immediately, subject to the same overlap guard as a
// scheduled fire.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown job: %s", id)
	}
	s.fire(j)
	return nil
}

// Jobs returns the current job registrations and their run state.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		statuses = append(statuses, JobStatus{
			ID:       j.id,
			Interval: j.interval,
			Running:  j.running.Load(),
		})
	}
	return statuses
}

func (s *Scheduler) loop(j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire(j)
		case <-j.stopCh:
			return
		}
	}
}

// fire starts one run of the job unless its previous run is still going.
func (s *Scheduler) fire(j *job) {
	if !j.running.CompareAndSwap(false, true) {
		log.Printf("[Scheduler] Job %s still running, skipping fire", j.id)
		return
	}

	go func() {
		defer j.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Scheduler] Job %s panicked: %v\n%s", j.id, r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		start := time.Now()
		j.fn(ctx)
		log.Printf("[Scheduler] Job %s completed in %v", j.id, time.Since(start))
	}()
}
