package effects

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

type recordingBackend struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	block bool
}

func (b *recordingBackend) record(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
	return b.fail[name]
}

func (b *recordingBackend) PersistInstalledVersion(ctx context.Context, gameID, version string) error {
	return b.record("persist:" + gameID + "@" + version)
}

func (b *recordingBackend) RefreshInstalledGames(ctx context.Context) error {
	if b.block {
		<-ctx.Done()
		_ = b.record("refresh")
		return ctx.Err()
	}
	return b.record("refresh")
}

func (b *recordingBackend) EmitEvent(ctx context.Context, name string, payload any) error {
	return b.record("emit:" + name)
}

func (b *recordingBackend) ShowNotification(ctx context.Context, title, body string) error {
	return b.record("notify:" + title)
}

func (b *recordingBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type recordingMarker struct {
	backend *recordingBackend
}

func (m recordingMarker) MarkDownloaded(ctx context.Context, gameID, version string) error {
	return m.backend.record("mark:" + gameID + "@" + version)
}

func completed(id string, isUpdate bool) reconcile.Outcome {
	return reconcile.Outcome{
		DownloadID: id,
		Applied:    true,
		Transition: reconcile.Completed,
		Record: types.DownloadRecord{
			DownloadID: id,
			GameID:     "g1",
			GameName:   "Quake",
			Status:     types.StatusCompleted,
			Version:    "1.2",
			IsUpdate:   isUpdate,
		},
	}
}

func TestPlan_UpdateOrder(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, recordingMarker{b}, Options{Notify: true})

	job := c.Plan(completed("dl", true))
	require.NotNil(t, job)
	report := job.Run(context.Background())

	assert.True(t, report.OK())
	assert.Equal(t, []string{
		"persist:g1@1.2",
		"mark:g1@1.2",
		"refresh",
		"emit:" + EventGameUpdated,
		"notify:Update installed",
	}, b.Calls())
}

func TestPlan_PlainCompletion(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, recordingMarker{b}, Options{Notify: true})

	report := c.Plan(completed("dl", false)).Run(context.Background())
	assert.True(t, report.OK())
	assert.Equal(t, []string{"refresh", "emit:" + EventDownloadComplete, "notify:Download complete"}, b.Calls())
}

func TestPlan_ErrorWithoutNotifications(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, nil, Options{Notify: false})

	out := reconcile.Outcome{
		DownloadID: "dl",
		Applied:    true,
		Transition: reconcile.Failed,
		Record:     types.DownloadRecord{DownloadID: "dl", Status: types.StatusError, Error: "disk full"},
	}
	report := c.Plan(out).Run(context.Background())
	assert.True(t, report.OK())
	assert.Equal(t, []string{"emit:" + EventDownloadError}, b.Calls())
}

func TestPlan_AtMostOncePerTransition(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, recordingMarker{b}, Options{})

	require.NotNil(t, c.Plan(completed("dl", false)))
	assert.True(t, c.Fired("dl", reconcile.Completed))
	assert.Nil(t, c.Plan(completed("dl", false)), "a second plan for the same transition is suppressed")
	assert.NotNil(t, c.Plan(completed("other", false)))
}

func TestPlan_IgnoresNonTransitions(t *testing.T) {
	c := NewCoordinator(&recordingBackend{}, nil, Options{})

	assert.Nil(t, c.Plan(reconcile.Outcome{DownloadID: "dl", Applied: true}))
	assert.Nil(t, c.Plan(reconcile.Outcome{DownloadID: "dl", Transition: reconcile.Completed}))
	assert.Nil(t, c.Plan(reconcile.Outcome{DownloadID: "dl", Reason: reconcile.ReasonDuplicate}))
}

func TestRun_PartialFailureDoesNotStopLaterTasks(t *testing.T) {
	b := &recordingBackend{fail: map[string]error{"mark:g1@1.2": errors.New("update service unreachable")}}
	c := NewCoordinator(b, recordingMarker{b}, Options{Notify: true})

	report := c.Plan(completed("dl", true)).Run(context.Background())

	assert.False(t, report.OK())
	require.Len(t, report.Results, 5)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "mark-update-downloaded", failed[0].Task)
	assert.NoError(t, report.Results[0].Err, "earlier steps are reported as succeeded")
	assert.Len(t, b.Calls(), 5, "later steps still run")
}

func TestRun_MissingMarker(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, nil, Options{})

	report := c.Plan(completed("dl", true)).Run(context.Background())
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "mark-update-downloaded", failed[0].Task)
}

func TestRun_TaskTimeout(t *testing.T) {
	b := &recordingBackend{block: true}
	c := NewCoordinator(b, nil, Options{TaskTimeout: 20 * time.Millisecond})

	start := time.Now()
	report := c.Plan(completed("dl", false)).Run(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, report.Failed(), 1)
	assert.ErrorIs(t, report.Failed()[0].Err, context.DeadlineExceeded)
	assert.Equal(t, []string{"refresh", "emit:" + EventDownloadComplete}, b.Calls())
}

func TestRun_CancelledContext(t *testing.T) {
	b := &recordingBackend{}
	c := NewCoordinator(b, nil, Options{Notify: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := c.Plan(completed("dl", false)).Run(ctx)
	assert.Len(t, report.Failed(), 3)
	assert.Empty(t, b.Calls())
}
