package app

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunJobNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobStatus describes one registered background job.
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	Next    time.Time `json:"next"`
	Prev    time.Time `json:"prev"`
	Running bool      `json:"running"`
}

type namedJob struct {
	name    string
	spec    string
	entryID cron.EntryID
	run     func()
	mu      sync.Mutex
	running bool
}

// exec runs the job unless a previous run is still in progress.
func (j *namedJob) exec() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		zap.L().Warn("job still running, skipped", zap.String("job", j.name))
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()
	start := time.Now()
	j.run()
	zap.L().Debug("job finished", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
}

func (j *namedJob) isRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (a *Application) addJob(name, spec string, run func()) error {
	job := &namedJob{name: name, spec: spec, run: run}
	id, err := a.sched.AddFunc(spec, job.exec)
	if err != nil {
		return errors.Wrapf(err, "schedule %s", name)
	}
	job.entryID = id
	a.jobsMu.Lock()
	a.jobs = append(a.jobs, job)
	a.jobsMu.Unlock()
	return nil
}

// Jobs lists the registered jobs sorted by name.
func (a *Application) Jobs() []JobStatus {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	out := make([]JobStatus, 0, len(a.jobs))
	for _, job := range a.jobs {
		st := JobStatus{Name: job.name, Spec: job.spec, Running: job.isRunning()}
		if a.sched != nil {
			entry := a.sched.Entry(job.entryID)
			st.Next, st.Prev = entry.Next, entry.Prev
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunJobNow starts the named job in the background.
func (a *Application) RunJobNow(name string) error {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	for _, job := range a.jobs {
		if job.name == name {
			go job.exec()
			return nil
		}
	}
	return errors.Wrap(ErrUnknownJob, name)
}
