// Package worker keeps the local ledger and the remote document in step:
// it polls the remote, merges what it finds and pushes local edits after a
// short debounce.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"carpool/internal/amqp"
	"carpool/internal/core"
	"carpool/internal/ledger"
	"carpool/internal/log"
	"carpool/internal/remote"
)

// Status is the sync state of the current session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

var (
	ErrNotAuthenticated = errors.New("no ledger owner signed in")
	ErrSaveInFlight     = errors.New("a save is already in flight")
	// ErrRemoteFormat reports a remote document that is not a ledger snapshot.
	ErrRemoteFormat = errors.New("malformed remote ledger")

	errStaleSession = errors.New("session changed during sync")
)

// Ledger is the part of the ledger store the coordinator drives.
type Ledger interface {
	StateWithMark() (core.Snapshot, ledger.Mark)
	Mark() ledger.Mark
	MergeFrom(other core.Snapshot, src ledger.Source) core.Snapshot
	Changes() <-chan ledger.Mark
}

// Publisher announces successful saves to other processes.
type Publisher interface {
	PublishLedgerSaved(ctx context.Context, msg *amqp.LedgerSavedMessage) error
}

// Config holds the coordinator timing.
type Config struct {
	// PollInterval is how often the remote is fetched (default: 5s)
	PollInterval time.Duration

	// Debounce is how long edits are coalesced before a push (default: 1.5s)
	Debounce time.Duration

	// RequestTimeout bounds one pull or push exchange (default: 15s)
	RequestTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PollInterval:   5 * time.Second,
		Debounce:       1500 * time.Millisecond,
		RequestTimeout: 15 * time.Second,
	}
}

// State is a point-in-time view of the coordinator.
type State struct {
	Owner       string      `json:"owner,omitempty"`
	Status      Status      `json:"status"`
	Message     string      `json:"message,omitempty"`
	LastVersion int64       `json:"lastVersion"`
	LastUpdated time.Time   `json:"lastUpdated,omitzero"`
	LastSynced  time.Time   `json:"lastSynced,omitzero"`
	Saved       ledger.Mark `json:"saved"`
	Pending     bool        `json:"pending"`
}

type Coordinator struct {
	ledger    Ledger
	endpoint  remote.Endpoint
	publisher Publisher
	config    Config
	logger    *log.Logger
	metrics   *Metrics
	now       func() time.Time

	inflight *semaphore.Weighted
	pullNow  chan struct{}
	pushDone chan bool

	mu          sync.Mutex
	session     uint64
	owner       string
	status      Status
	message     string
	lastVersion int64
	lastUpdated time.Time
	lastSynced  time.Time
	saved       ledger.Mark
	lastFailure string

	// Lifecycle management
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithPublisher(p Publisher) Option { return func(c *Coordinator) { c.publisher = p } }
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l.WithComponent(log.ComponentWorker) }
}
func WithMetrics(m *Metrics) Option         { return func(c *Coordinator) { c.metrics = m } }
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func NewCoordinator(l Ledger, endpoint remote.Endpoint, config Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = def.Debounce
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = def.RequestTimeout
	}

	c := &Coordinator{
		ledger:   l,
		endpoint: endpoint,
		config:   config,
		logger:   log.Discard(),
		now:      time.Now,
		inflight: semaphore.NewWeighted(1),
		pullNow:  make(chan struct{}, 1),
		pushDone: make(chan bool),
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// Login starts a session for owner and schedules an immediate pull.
// Any state tracked for a previous session is dropped.
func (c *Coordinator) Login(owner string) error {
	if owner == "" {
		return ErrNotAuthenticated
	}
	c.mu.Lock()
	c.session++
	c.owner = owner
	c.resetTrackingLocked()
	c.mu.Unlock()

	c.logger.Info("Sync session started", log.FieldOwner, owner)
	c.RequestPull()
	return nil
}

// Logout ends the session. Results of exchanges still in flight are dropped.
func (c *Coordinator) Logout() {
	c.mu.Lock()
	owner := c.owner
	c.session++
	c.owner = ""
	c.resetTrackingLocked()
	c.mu.Unlock()

	c.logger.Info("Sync session ended", log.FieldOwner, owner)
}

func (c *Coordinator) resetTrackingLocked() {
	c.status = StatusIdle
	c.message = ""
	c.lastVersion = 0
	c.lastUpdated = time.Time{}
	c.lastSynced = time.Time{}
	c.saved = ledger.Mark{}
	c.lastFailure = ""
}

// State returns the current sync state.
func (c *Coordinator) State() State {
	mark := c.ledger.Mark()
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Owner:       c.owner,
		Status:      c.status,
		Message:     c.message,
		LastVersion: c.lastVersion,
		LastUpdated: c.lastUpdated,
		LastSynced:  c.lastSynced,
		Saved:       c.saved,
		Pending:     c.unsavedLocked(mark),
	}
}

func (c *Coordinator) currentSession() (string, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.session, c.owner != ""
}

func (c *Coordinator) setStatus(session uint64, status Status, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session {
		return
	}
	c.status = status
	c.message = msg
	if status == StatusSynced {
		c.lastSynced = c.now()
		c.lastFailure = ""
	}
}

// needsPush reports whether the ledger holds a revision not yet saved remotely.
func (c *Coordinator) needsPush() bool {
	mark := c.ledger.Mark()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsavedLocked(mark)
}

// unsavedLocked reports whether mark differs from the last pushed one. A
// fresh ledger (zero mark) has nothing to push; a reset has Epoch > 0 and
// Revision 0 and must still reach the remote.
func (c *Coordinator) unsavedLocked(mark ledger.Mark) bool {
	if c.owner == "" || mark == c.saved {
		return false
	}
	return mark.Revision > 0 || mark.Epoch > 0
}

// RequestPull asks the running loop to pull as soon as possible.
func (c *Coordinator) RequestPull() {
	select {
	case c.pullNow <- struct{}{}:
	default:
	}
}

// HandleLedgerSaved reacts to a save announced by another process.
func (c *Coordinator) HandleLedgerSaved(ctx context.Context, msg *amqp.LedgerSavedMessage) error {
	c.mu.Lock()
	relevant := msg.Owner == c.owner && msg.Version > c.lastVersion
	c.mu.Unlock()

	if relevant {
		c.logger.DebugContext(ctx, "Remote ledger advanced, pulling", log.FieldOwner, msg.Owner, log.FieldRemote, msg.Version)
		c.RequestPull()
	}
	return nil
}

// Pull fetches the remote document and merges it into the ledger when it
// changed since the last fetch.
func (c *Coordinator) Pull(ctx context.Context) error {
	owner, session, ok := c.currentSession()
	if !ok {
		return ErrNotAuthenticated
	}
	start := c.now()
	defer func() { c.metrics.Duration.WithLabelValues(log.OpPull).Observe(time.Since(start).Seconds()) }()

	c.setStatus(session, StatusSyncing, "")
	doc, err := c.endpoint.Fetch(ctx, owner)
	if err != nil {
		c.metrics.Pulls.WithLabelValues(resultError).Inc()
		c.fail(ctx, session, log.OpPull, err)
		return err
	}

	if _, err := c.absorb(ctx, session, doc); err != nil {
		if errors.Is(err, errStaleSession) {
			return nil
		}
		c.metrics.Pulls.WithLabelValues(resultLabel(err)).Inc()
		c.fail(ctx, session, log.OpPull, err)
		return err
	}

	c.metrics.Pulls.WithLabelValues(resultOK).Inc()
	c.setStatus(session, StatusSynced, "")
	return nil
}

// absorb records the fetched document as seen and, when it is newer than the
// last one seen, merges it into the ledger. Nothing is applied if the session
// changed while the fetch was in flight.
func (c *Coordinator) absorb(ctx context.Context, session uint64, doc *remote.Document) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session {
		return false, errStaleSession
	}
	if doc == nil {
		return false, nil
	}

	changed := doc.Version > c.lastVersion || doc.LastUpdated.After(c.lastUpdated)
	if !changed {
		return false, nil
	}

	if doc.Data != "" {
		snap, err := parseSnapshot(doc.Data)
		if err != nil {
			return false, fmt.Errorf("remote version %d: %w", doc.Version, err)
		}
		c.ledger.MergeFrom(snap, ledger.SourceMerge)
		c.metrics.Merges.Inc()
		c.logger.InfoContext(ctx, "Merged remote ledger",
			log.FieldOwner, c.owner,
			log.FieldRemote, doc.Version,
			"previous_version", c.lastVersion)
	}

	c.lastVersion = doc.Version
	c.lastUpdated = doc.LastUpdated
	c.metrics.RemoteVersion.Set(float64(doc.Version))
	return true, nil
}

func parseSnapshot(data string) (core.Snapshot, error) {
	var snap core.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrRemoteFormat, err)
	}
	return snap.Clone(), nil
}

// Push saves the ledger to the remote when it holds an unsaved revision.
//
// The remote is fetched once more first and merged if another client wrote
// since the last pull. Only one push runs at a time; a concurrent call
// returns ErrSaveInFlight and the unsaved revision stays pending.
func (c *Coordinator) Push(ctx context.Context) error {
	if !c.inflight.TryAcquire(1) {
		c.metrics.Pushes.WithLabelValues("skipped").Inc()
		return ErrSaveInFlight
	}
	defer c.inflight.Release(1)

	owner, session, ok := c.currentSession()
	if !ok {
		return ErrNotAuthenticated
	}
	if !c.needsPush() {
		return nil
	}
	start := c.now()
	defer func() { c.metrics.Duration.WithLabelValues(log.OpPush).Observe(time.Since(start).Seconds()) }()

	c.setStatus(session, StatusSyncing, "")

	doc, err := c.endpoint.Fetch(ctx, owner)
	if err != nil {
		c.metrics.Pushes.WithLabelValues(resultError).Inc()
		c.fail(ctx, session, log.OpPush, err)
		return err
	}
	if _, err := c.absorb(ctx, session, doc); err != nil {
		if errors.Is(err, errStaleSession) {
			return nil
		}
		c.metrics.Pushes.WithLabelValues(resultLabel(err)).Inc()
		c.fail(ctx, session, log.OpPush, err)
		return err
	}

	// The version tag and the snapshot are read together so a pull landing in
	// between can not pair a newer version with older data.
	c.mu.Lock()
	prev := c.lastVersion
	snap, mark := c.ledger.StateWithMark()
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		c.fail(ctx, session, log.OpPush, err)
		return err
	}

	savedAt := c.now().UTC()
	err = c.endpoint.Save(ctx, owner, remote.Document{Data: string(data), Version: prev, LastUpdated: savedAt})
	if err != nil {
		c.metrics.Pushes.WithLabelValues(resultLabel(err)).Inc()
		c.fail(ctx, session, log.OpPush, err)
		return err
	}

	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		return nil
	}
	c.lastVersion = prev + 1
	c.lastUpdated = savedAt
	c.saved = mark
	c.status = StatusSynced
	c.message = ""
	c.lastSynced = savedAt
	c.mu.Unlock()

	c.metrics.Pushes.WithLabelValues(resultOK).Inc()
	c.metrics.RemoteVersion.Set(float64(prev + 1))
	c.metrics.Revision.Set(float64(mark.Revision))

	fields := log.NewFields().WithSync(owner, mark.Revision, prev+1)
	c.logger.InfoContext(ctx, "Ledger pushed", fields.ToSlice()...)

	if c.publisher != nil {
		msg := amqp.NewLedgerSavedMessage(owner, prev+1, mark.Revision)
		if err := c.publisher.PublishLedgerSaved(ctx, msg); err != nil {
			c.logger.WarnContext(ctx, "Failed to publish ledger saved event", log.FieldError, err)
		}
	}
	return nil
}

// fail marks the session failed. A failure identical to the previous one,
// such as the same malformed remote version seen on every poll, is logged
// at debug level only.
func (c *Coordinator) fail(ctx context.Context, session uint64, op string, err error) {
	msg := err.Error()
	c.mu.Lock()
	repeat := session == c.session && c.lastFailure == msg
	if session == c.session {
		c.lastFailure = msg
	}
	c.mu.Unlock()

	c.setStatus(session, StatusFailed, msg)
	if repeat {
		c.logger.DebugContext(ctx, "Sync still failing", log.FieldOperation, op, log.FieldError, err)
		return
	}
	c.logger.WarnContext(ctx, "Sync failed", log.FieldOperation, op, log.FieldError, err)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, remote.ErrVersionConflict):
		return resultConflict
	case errors.Is(err, ErrRemoteFormat):
		return resultFormat
	}
	return resultError
}

// Start begins the sync loop. Returns an error if already running.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("sync coordinator is already running")
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.runLoop(ctx)

	c.logger.InfoContext(ctx, "Sync coordinator started",
		"poll_interval", c.config.PollInterval,
		"debounce", c.config.Debounce)
	return nil
}

// Stop gracefully stops the loop and waits for it to exit. A push still in
// flight finishes on its own; its result is not waited for.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		c.logger.InfoContext(ctx, "Sync coordinator stopped gracefully")
	case <-ctx.Done():
		c.logger.WarnContext(ctx, "Sync coordinator stop timed out")
		return ctx.Err()
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

// IsRunning returns whether the loop is running
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// runLoop is the single place timers fire from.
func (c *Coordinator) runLoop(ctx context.Context) {
	defer close(c.doneCh)

	pollTicker := time.NewTicker(c.config.PollInterval)
	defer pollTicker.Stop()

	debounce := time.NewTimer(c.config.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	// Only local edits restart the debounce. Polls and finished pushes arm it
	// when idle and leave a running countdown alone, so a poll interval
	// shorter than the debounce can not hold a push back forever.
	armed := false
	arm := func(restart bool) {
		if armed && !restart {
			return
		}
		if c.needsPush() {
			debounce.Reset(c.config.Debounce)
			armed = true
		}
	}

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-c.pullNow:
			c.pullOnce(ctx)
			arm(false)
		case <-pollTicker.C:
			c.pullOnce(ctx)
			arm(false)
		case <-c.ledger.Changes():
			arm(true)
		case <-debounce.C:
			armed = false
			c.startPush(ctx)
		case ok := <-c.pushDone:
			if ok {
				// Edits made while the push was in flight.
				arm(false)
			}
		}
	}
}

func (c *Coordinator) pullOnce(ctx context.Context) {
	if _, _, ok := c.currentSession(); !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	_ = c.Pull(ctx)
}

func (c *Coordinator) startPush(ctx context.Context) {
	stopCh := c.stopCh
	go func() {
		pctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		err := c.Push(pctx)
		cancel()
		if errors.Is(err, ErrSaveInFlight) {
			// The running push reports back and re-arms.
			return
		}
		select {
		case c.pushDone <- err == nil:
		case <-stopCh:
		case <-ctx.Done():
		}
	}()
}
