package effects

import (
	"context"
	"fmt"
	"time"

	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// Cross-window event names.
const (
	EventDownloadComplete = "download-complete"
	EventDownloadError    = "download-error"
	EventGameUpdated      = "game-updated"
)

// DefaultTaskTimeout bounds a single side-effect task.
const DefaultTaskTimeout = 10 * time.Second

// Backend is the part of the download backend that side effects talk to.
type Backend interface {
	PersistInstalledVersion(ctx context.Context, gameID, version string) error
	RefreshInstalledGames(ctx context.Context) error
	EmitEvent(ctx context.Context, name string, payload any) error
	ShowNotification(ctx context.Context, title, body string) error
}

// UpdateMarker records on the update service that a game version was fetched.
type UpdateMarker interface {
	MarkDownloaded(ctx context.Context, gameID, version string) error
}

// Task is one best-effort step of a Job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one task.
type Result struct {
	Task    string
	Err     error
	Elapsed time.Duration
}

// Report lists the result of every task of a Job, in order.
type Report struct {
	DownloadID string
	Transition reconcile.Transition
	Results    []Result
}

// OK reports whether every task succeeded.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the results of the tasks that returned an error.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Job is the ordered side-effect plan for one terminal transition.
type Job struct {
	DownloadID string
	Transition reconcile.Transition
	Tasks      []Task
	Timeout    time.Duration
}

// Run executes the tasks in order. A failing task is logged and does not
// stop or undo the others. Run never retries.
func (j *Job) Run(ctx context.Context) Report {
	report := Report{DownloadID: j.DownloadID, Transition: j.Transition}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}

	for _, task := range j.Tasks {
		if ctx.Err() != nil {
			report.Results = append(report.Results, Result{Task: task.Name, Err: ctx.Err()})
			continue
		}

		start := time.Now()
		taskCtx, cancel := context.WithTimeout(ctx, timeout)
		err := task.Run(taskCtx)
		cancel()

		res := Result{Task: task.Name, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			utils.Debug("effects: %s for %s failed after %s: %v", task.Name, j.DownloadID, res.Elapsed, err)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

// Options tune a Coordinator.
type Options struct {
	Notify      bool
	TaskTimeout time.Duration
}

// Coordinator turns terminal transitions into side-effect jobs, at most once
// per download and transition. Plan must be called from the goroutine that
// applies events; the returned Job may run anywhere.
type Coordinator struct {
	backend Backend
	marker  UpdateMarker
	opts    Options
	fired   map[string]bool
}

// NewCoordinator creates a Coordinator. marker may be nil, in which case the
// mark-downloaded step of update plans fails with an explanatory error.
func NewCoordinator(backend Backend, marker UpdateMarker, opts Options) *Coordinator {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	return &Coordinator{
		backend: backend,
		marker:  marker,
		opts:    opts,
		fired:   make(map[string]bool),
	}
}

// Plan returns the job for an outcome, or nil when the outcome is not a
// first-time terminal transition.
func (c *Coordinator) Plan(out reconcile.Outcome) *Job {
	if !out.Applied || out.Transition == reconcile.NoTransition {
		return nil
	}
	key := out.DownloadID + "/" + out.Transition.String()
	if c.fired[key] {
		return nil
	}
	c.fired[key] = true

	rec := out.Record
	var tasks []Task
	switch out.Transition {
	case reconcile.Completed:
		if rec.IsUpdate {
			tasks = c.updateTasks(rec)
		} else {
			tasks = c.completeTasks(rec)
		}
	case reconcile.Failed:
		tasks = c.errorTasks(rec)
	}

	return &Job{
		DownloadID: out.DownloadID,
		Transition: out.Transition,
		Tasks:      tasks,
		Timeout:    c.opts.TaskTimeout,
	}
}

// Fired reports whether a job was already planned for id and transition.
func (c *Coordinator) Fired(id string, t reconcile.Transition) bool {
	return c.fired[id+"/"+t.String()]
}

func (c *Coordinator) updateTasks(rec types.DownloadRecord) []Task {
	tasks := []Task{
		{Name: "persist-installed-version", Run: func(ctx context.Context) error {
			return c.backend.PersistInstalledVersion(ctx, rec.GameID, rec.Version)
		}},
		{Name: "mark-update-downloaded", Run: func(ctx context.Context) error {
			if c.marker == nil {
				return fmt.Errorf("no update service configured")
			}
			return c.marker.MarkDownloaded(ctx, rec.GameID, rec.Version)
		}},
		{Name: "refresh-installed-games", Run: c.backend.RefreshInstalledGames},
		c.emitTask(EventGameUpdated, rec),
	}
	if c.opts.Notify {
		body := fmt.Sprintf("%s was updated", displayName(rec))
		if rec.Version != "" {
			body = fmt.Sprintf("%s was updated to %s", displayName(rec), rec.Version)
		}
		tasks = append(tasks, c.notifyTask("Update installed", body))
	}
	return tasks
}

func (c *Coordinator) completeTasks(rec types.DownloadRecord) []Task {
	tasks := []Task{
		{Name: "refresh-installed-games", Run: c.backend.RefreshInstalledGames},
		c.emitTask(EventDownloadComplete, rec),
	}
	if c.opts.Notify {
		tasks = append(tasks, c.notifyTask("Download complete", displayName(rec)+" is ready to play"))
	}
	return tasks
}

func (c *Coordinator) errorTasks(rec types.DownloadRecord) []Task {
	tasks := []Task{c.emitTask(EventDownloadError, rec)}
	if c.opts.Notify {
		tasks = append(tasks, c.notifyTask("Download failed", displayName(rec)+": "+rec.Error))
	}
	return tasks
}

func (c *Coordinator) emitTask(name string, rec types.DownloadRecord) Task {
	return Task{Name: "emit-" + name, Run: func(ctx context.Context) error {
		return c.backend.EmitEvent(ctx, name, rec)
	}}
}

func (c *Coordinator) notifyTask(title, body string) Task {
	return Task{Name: "notify", Run: func(ctx context.Context) error {
		return c.backend.ShowNotification(ctx, title, body)
	}}
}

func displayName(rec types.DownloadRecord) string {
	switch {
	case rec.GameName != "":
		return rec.GameName
	case rec.GameID != "":
		return rec.GameID
	default:
		return rec.DownloadID
	}
}
