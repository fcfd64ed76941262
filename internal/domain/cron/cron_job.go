package cron

import (
	"context"
	"sync"
	"time"

	"github.com/ticketdraw/backend/pkg/xcontext"
)

type Job interface {
	Do(context.Context)
	RunNow() bool
	Next() time.Time
}

// Manager runs registered jobs on their own schedules. Each job is
// rescheduled after it finishes, so a slow run delays the next one instead
// of overlapping it.
type Manager struct {
	mutex sync.Mutex
	wait  sync.WaitGroup
	jobs  map[Job]*time.Timer
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[Job]*time.Timer)}
}

// Start schedules all jobs and blocks until Cancel is called.
func (m *Manager) Start(ctx context.Context, jobs ...Job) {
	xcontext.Logger(ctx).Infof("Cron job manager started")

	for _, job := range jobs {
		m.jobs[job] = nil
		if job.RunNow() {
			go m.run(ctx, job)
		} else {
			m.schedule(ctx, job)
		}

		m.wait.Add(1)
	}

	m.wait.Wait()
	xcontext.Logger(ctx).Infof("Cron job manager stopped")
}

func (m *Manager) Cancel(ctx context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for job, timer := range m.jobs {
		if timer == nil {
			xcontext.Logger(ctx).Warnf("Stop a job that hasn't started: %T", job)
			continue
		}

		timer.Stop()
		m.wait.Done()
	}

	// Drop all jobs so an in-flight run cannot reschedule itself.
	m.jobs = make(map[Job]*time.Timer)
}

func (m *Manager) run(ctx context.Context, job Job) {
	xcontext.Logger(ctx).Infof("%T is running...", job)
	job.Do(ctx)
	xcontext.Logger(ctx).Infof("%T ok", job)

	m.schedule(ctx, job)
}

func (m *Manager) schedule(ctx context.Context, job Job) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.jobs[job]; ok {
		m.jobs[job] = time.AfterFunc(time.Until(job.Next()), func() { m.run(ctx, job) })
	}
}
