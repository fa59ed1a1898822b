package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// Reason qualifies an Outcome. Rejections leave the record untouched; the
// Preserved reasons accompany an applied status event whose status was kept.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonThrottled   Reason = "throttled"
	ReasonRegressed   Reason = "regressed"
	ReasonInvalid     Reason = "invalid sample"
	ReasonFrozen      Reason = "record is terminal"
	ReasonDuplicate   Reason = "duplicate terminal event"
	ReasonUnsupported Reason = "unsupported event"

	ReasonUnknownStatus     Reason = "unknown status preserved"
	ReasonTerminalStatus    Reason = "terminal status requires terminal event"
	ReasonIllegalTransition Reason = "illegal transition preserved"
)

// Transition marks the first entry of a record into a terminal state.
type Transition int

const (
	NoTransition Transition = iota
	Completed
	Failed
)

func (t Transition) String() string {
	switch t {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "none"
	}
}

// Outcome describes what Apply did with one event.
type Outcome struct {
	DownloadID string
	Kind       events.Kind
	Applied    bool
	Reason     Reason
	Transition Transition
	// Record is a copy of the record after the event; zero if none exists.
	Record types.DownloadRecord
}

// track is the filter side-state owned by one non-terminal download.
type track struct {
	guard   *Guard
	percent *Window
	speed   *Window
}

// Store is the authoritative set of download records. It is not safe for
// concurrent use: all events must be applied from one goroutine.
type Store struct {
	params  types.Params
	now     func() time.Time
	records map[string]*types.DownloadRecord
	tracks  map[string]*track
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for throttling and LastUpdate.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(params types.Params, opts ...Option) *Store {
	s := &Store{
		params:  params.Normalize(),
		now:     time.Now,
		records: make(map[string]*types.DownloadRecord),
		tracks:  make(map[string]*track),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the effective reconciler parameters.
func (s *Store) Params() types.Params {
	return s.params
}

// Apply merges one event into the store. It is the only mutation path for
// live events.
func (s *Store) Apply(ev events.Event) Outcome {
	var out Outcome
	switch m := ev.(type) {
	case events.StatusMsg:
		out = s.applyStatus(m)
	case events.ProgressMsg:
		out = s.applyProgress(m)
	case events.DownloadCompleteMsg:
		out = s.applyComplete(m)
	case events.DownloadErrorMsg:
		out = s.applyError(m)
	default:
		return Outcome{Reason: ReasonUnsupported}
	}

	out.DownloadID = ev.ID()
	out.Kind = ev.Kind()
	if rec, ok := s.records[out.DownloadID]; ok {
		out.Record = *rec
	}
	if !out.Applied {
		utils.Debug("reconcile: %s event for %s dropped: %s", out.Kind, out.DownloadID, out.Reason)
	} else if out.Reason != ReasonNone {
		utils.Debug("reconcile: %s event for %s applied with %s", out.Kind, out.DownloadID, out.Reason)
	}
	return out
}

func (s *Store) applyStatus(m events.StatusMsg) Outcome {
	rec, exists := s.records[m.DownloadID]
	if exists && rec.Status.Terminal() {
		return Outcome{Reason: ReasonFrozen}
	}

	target, known := types.ParseStatus(m.Status)
	reason := ReasonNone

	if !exists {
		if known && target.Terminal() {
			// Wait for the complete or error event instead of showing a
			// finished download as starting.
			return Outcome{Reason: ReasonTerminalStatus}
		}
		rec = &types.DownloadRecord{DownloadID: m.DownloadID, Status: types.StatusStarting}
		s.records[m.DownloadID] = rec
		if known {
			rec.Status = target
		}
	}

	switch {
	case !known:
		reason = ReasonUnknownStatus
	case target.Terminal():
		reason = ReasonTerminalStatus
	case !types.CanTransition(rec.Status, target):
		reason = ReasonIllegalTransition
	case target != rec.Status:
		rec.Status = target
		rec.StatusMessage = ""
	}

	if m.Message != "" {
		rec.StatusMessage = m.Message
	}
	mergeIdentity(rec, m.GameID, m.GameName, m.GameCover)
	if m.Version != "" {
		rec.Version = m.Version
	}
	if m.IsUpdate {
		rec.IsUpdate = true
	}
	rec.LastUpdate = s.now()

	return Outcome{Applied: true, Reason: reason}
}

func (s *Store) applyProgress(m events.ProgressMsg) Outcome {
	rec, exists := s.records[m.DownloadID]
	if exists && rec.Status.Terminal() {
		return Outcome{Reason: ReasonFrozen}
	}
	if math.IsNaN(m.Percentage) || math.IsNaN(m.Speed) {
		return Outcome{Reason: ReasonInvalid}
	}

	pct := clampPercent(m.Percentage)
	now := s.now()
	tr := s.trackFor(m.DownloadID)

	switch tr.guard.Admit(pct, now) {
	case Throttled:
		return Outcome{Reason: ReasonThrottled}
	case Regressed:
		return Outcome{Reason: ReasonRegressed}
	}

	if !exists {
		rec = &types.DownloadRecord{DownloadID: m.DownloadID}
		s.records[m.DownloadID] = rec
	}

	speed := math.Max(m.Speed, 0)

	rec.SmoothedPercentage = Surface(rec.SmoothedPercentage, tr.percent.Push(pct), pct)
	rec.Percentage = pct
	rec.Speed = speed
	rec.SmoothedSpeed = tr.speed.Push(speed)
	if m.Downloaded >= 0 {
		rec.Downloaded = m.Downloaded
	}
	if m.Total > rec.Total {
		rec.Total = m.Total
	}
	rec.ETA = max(m.ETA, 0)

	if rec.Status != types.StatusDownloading {
		rec.StatusMessage = ""
	}
	rec.Status = types.StatusDownloading
	mergeIdentity(rec, m.GameID, m.GameName, m.GameCover)
	rec.LastUpdate = now

	return Outcome{Applied: true}
}

func (s *Store) applyComplete(m events.DownloadCompleteMsg) Outcome {
	rec, exists := s.records[m.DownloadID]
	if exists {
		switch rec.Status {
		case types.StatusCompleted:
			return Outcome{Reason: ReasonDuplicate}
		case types.StatusError:
			return Outcome{Reason: ReasonFrozen}
		}
	} else {
		rec = &types.DownloadRecord{DownloadID: m.DownloadID}
		s.records[m.DownloadID] = rec
	}

	rec.Status = types.StatusCompleted
	settleCompleted(rec)

	mergeIdentity(rec, m.GameID, "", "")
	rec.InstallPath = m.InstallPath
	rec.Executable = m.Executable
	if m.Version != "" {
		rec.Version = m.Version
	}
	if m.IsUpdate {
		rec.IsUpdate = true
	}
	rec.Error = ""
	rec.StatusMessage = ""
	rec.LastUpdate = s.now()

	delete(s.tracks, m.DownloadID)
	utils.Debug("reconcile: %s completed (update=%v)", m.DownloadID, rec.IsUpdate)

	return Outcome{Applied: true, Transition: Completed}
}

func (s *Store) applyError(m events.DownloadErrorMsg) Outcome {
	rec, exists := s.records[m.DownloadID]
	if exists {
		switch rec.Status {
		case types.StatusError:
			return Outcome{Reason: ReasonDuplicate}
		case types.StatusCompleted:
			return Outcome{Reason: ReasonFrozen}
		}
	} else {
		rec = &types.DownloadRecord{DownloadID: m.DownloadID}
		s.records[m.DownloadID] = rec
	}

	rec.Status = types.StatusError
	rec.Error = m.Message()
	settleStopped(rec)
	rec.StatusMessage = ""
	mergeIdentity(rec, m.GameID, "", "")
	rec.LastUpdate = s.now()

	delete(s.tracks, m.DownloadID)
	utils.Debug("reconcile: %s failed: %s", m.DownloadID, rec.Error)

	return Outcome{Applied: true, Transition: Failed}
}

// settleStopped zeroes the rate fields of a record that no longer transfers.
func settleStopped(rec *types.DownloadRecord) {
	rec.Speed = 0
	rec.SmoothedSpeed = 0
	rec.ETA = 0
}

// settleCompleted forces the final values of a completed download. Downloaded
// and total fall back to whichever of the two is known.
func settleCompleted(rec *types.DownloadRecord) {
	rec.Percentage = 100
	rec.SmoothedPercentage = 100
	settleStopped(rec)
	switch {
	case rec.Total > 0:
		rec.Downloaded = rec.Total
	case rec.Downloaded > 0:
		rec.Total = rec.Downloaded
	}
}

func (s *Store) trackFor(id string) *track {
	tr, ok := s.tracks[id]
	if !ok {
		tr = &track{
			guard:   NewGuard(s.params.ProgressTolerance, s.params.MinProgressInterval),
			percent: NewWindow(s.params.PercentWindow),
			speed:   NewWindow(s.params.SpeedWindow),
		}
		s.tracks[id] = tr
	}
	return tr
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (types.DownloadRecord, bool) {
	rec, ok := s.records[id]
	if !ok {
		return types.DownloadRecord{}, false
	}
	return *rec, true
}

// List returns copies of all records ordered by download id.
func (s *Store) List() []types.DownloadRecord {
	out := make([]types.DownloadRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DownloadID < out[j].DownloadID })
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Tracked reports whether filter side-state exists for id.
func (s *Store) Tracked(id string) bool {
	_, ok := s.tracks[id]
	return ok
}

// mergeIdentity fills descriptive fields from an event. Empty values never
// blank a known field, and the game id is fixed once set.
func mergeIdentity(rec *types.DownloadRecord, gameID, name, cover string) {
	if rec.GameID == "" && gameID != "" {
		rec.GameID = gameID
	}
	if name != "" {
		rec.GameName = name
	}
	if cover != "" {
		rec.GameCover = cover
	}
}

func clampPercent(p float64) float64 {
	return math.Min(math.Max(p, 0), 100)
}
