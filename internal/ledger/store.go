// Package ledger owns the local carpool ledger: committed and draft
// participation, money records, settings and the revision counter that tells
// the sync worker when there is something new to push.
//
// All mutations are serialized by the Store and tagged with a Source. Only
// user edits (and backup restores) advance the revision; state applied from a
// remote merge never does, so a pull can not trigger a push of itself.
package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"carpool/internal/core"
	"carpool/internal/log"
	"carpool/internal/merge"
)

// Keys used in the local durable store.
const (
	StateKey    = "carpool.ledger"
	AutoTollKey = "carpool.autoToll"
)

// Source tags a mutation with where it came from.
type Source int

const (
	// SourceUserEdit is a local edit; it advances the revision.
	SourceUserEdit Source = iota
	// SourceMerge is state applied from a remote pull; the revision is untouched.
	SourceMerge
	// SourceRestore is a backup merged into the ledger; it advances the
	// revision so the restored records get pushed.
	SourceRestore
	// SourceReset is a full clear; the revision goes back to zero.
	SourceReset
)

func (s Source) String() string {
	switch s {
	case SourceUserEdit:
		return "user_edit"
	case SourceMerge:
		return "merge"
	case SourceRestore:
		return "restore"
	case SourceReset:
		return "reset"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Mark identifies a revision. Epoch changes on every full reset so that a
// revision counted again from zero is never mistaken for one already pushed.
type Mark struct {
	Epoch    uint64 `json:"epoch"`
	Revision uint64 `json:"revision"`
}

// LocalStore is the durable key-value store the ledger persists into.
type LocalStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Store is the single source of truth for the local ledger.
type Store struct {
	mu sync.Mutex

	local  LocalStore
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	committed core.Snapshot
	draft     core.DailyData
	autoToll  core.AutoToll
	mark      Mark

	changes chan Mark
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithAutoToll sets the auto-toll configuration used when none was persisted.
func WithAutoToll(at core.AutoToll) Option {
	return func(s *Store) { s.autoToll = at }
}

// New builds a Store and loads the persisted ledger from local. A nil local
// store keeps everything in memory.
func New(local LocalStore, opts ...Option) *Store {
	s := &Store{
		local:   local,
		logger:  log.Discard(),
		now:     time.Now,
		changes: make(chan Mark, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = func() string { return NewID(s.now()) }
	}
	s.load()
	return s
}

// NewID returns a record id made of a millisecond timestamp and a random suffix.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

func (s *Store) load() {
	s.committed = core.EmptySnapshot(core.DefaultSettings(s.now()))
	s.draft = core.DailyData{}

	if s.local == nil {
		return
	}

	if raw, ok, err := s.local.Get(StateKey); err != nil {
		s.logger.Error("Failed to read ledger, starting empty", log.FieldOperation, log.OpLoad, log.FieldError, err)
	} else if ok && raw != "" {
		var snap core.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			s.logger.Error("Stored ledger is malformed, starting empty", log.FieldOperation, log.OpParse, log.FieldError, err)
		} else {
			if snap.DateRange.Validate() != nil {
				snap.DateRange = s.committed.DateRange
			}
			s.committed = snap.Clone()
		}
	}
	s.draft = s.committed.DailyData.Clone()

	if raw, ok, err := s.local.Get(AutoTollKey); err != nil {
		s.logger.Warn("Failed to read auto-toll setting", log.FieldError, err)
	} else if ok && raw != "" {
		var at core.AutoToll
		if err := json.Unmarshal([]byte(raw), &at); err != nil {
			s.logger.Warn("Stored auto-toll setting is malformed", log.FieldError, err)
		} else {
			s.autoToll = at
		}
	}

	s.logger.Info("Ledger loaded",
		log.FieldRecordCount, len(s.committed.Travellers)+len(s.committed.CashPayments)+len(s.committed.OtherPending)+len(s.committed.CarExpenses)+len(s.committed.CoTravellerIncomes),
	)
}

// tx is the working copy a mutation edits. It is swapped in only when the
// mutation returns without error.
type tx struct {
	snap  core.Snapshot
	draft core.DailyData
}

func (s *Store) commit(src Source, fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{snap: s.committed.Clone(), draft: s.draft.Clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.committed = t.snap
	s.draft = t.draft

	switch src {
	case SourceUserEdit, SourceRestore:
		s.mark.Revision++
	case SourceReset:
		s.mark.Epoch++
		s.mark.Revision = 0
	}
	s.persistLocked()
	if src != SourceMerge {
		s.notifyLocked()
	}
	s.logger.Debug("Ledger committed", log.FieldSource, src.String(), log.FieldRevision, s.mark.Revision)
	return nil
}

func (s *Store) persistLocked() {
	if s.local == nil {
		return
	}
	b, err := json.Marshal(s.committed)
	if err != nil {
		s.logger.Error("Failed to encode ledger", log.FieldOperation, log.OpPersist, log.FieldError, err)
		return
	}
	if err := s.local.Set(StateKey, string(b)); err != nil {
		s.logger.Error("Failed to persist ledger", log.FieldOperation, log.OpPersist, log.FieldError, err)
	}
}

// notifyLocked publishes the current mark, replacing any unread one.
func (s *Store) notifyLocked() {
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- s.mark:
	default:
	}
}

// Changes delivers the latest mark after every change that may need a push.
// Unread notifications are coalesced; only the newest is kept.
func (s *Store) Changes() <-chan Mark {
	return s.changes
}

// Revision returns the current revision counter.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mark.Revision
}

// Mark returns the current epoch and revision.
func (s *Store) Mark() Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mark
}

// GetPersistedState returns a copy of the committed ledger and settings.
func (s *Store) GetPersistedState() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone()
}

// StateWithMark returns the committed ledger together with the mark it
// corresponds to, read under one lock.
func (s *Store) StateWithMark() (core.Snapshot, Mark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone(), s.mark
}

// ApplyMergedState replaces the whole ledger with snap and resets the draft
// to the new committed participation. The revision is not advanced.
func (s *Store) ApplyMergedState(snap core.Snapshot) {
	_ = s.commit(SourceMerge, func(t *tx) error {
		t.snap = snap.Clone()
		t.draft = t.snap.DailyData.Clone()
		return nil
	})
}

// MergeFrom merges other into the current ledger as merge.Merge(current, other)
// and applies the result in one step, so edits made between reading the
// current state and applying the merge can not be lost. An invalid date range
// or a negative rate in other leaves the current value in place.
func (s *Store) MergeFrom(other core.Snapshot, src Source) core.Snapshot {
	var out core.Snapshot
	_ = s.commit(src, func(t *tx) error {
		prev := t.snap
		t.snap = merge.Merge(t.snap, other)
		keepValidSettings(&t.snap, prev)
		t.draft = t.snap.DailyData.Clone()
		out = t.snap.Clone()
		return nil
	})
	return out
}

func keepValidSettings(merged *core.Snapshot, prev core.Snapshot) {
	if merged.DateRange.Validate() != nil {
		merged.DateRange = prev.DateRange
	}
	if merged.RatePerTrip.IsNegative() {
		merged.RatePerTrip = prev.RatePerTrip
	}
}

// MergeRestoreFromBackup merges a backup into the ledger. Nothing already
// recorded is dropped; settings follow the backup.
func (s *Store) MergeRestoreFromBackup(backup core.Snapshot) core.Snapshot {
	return s.MergeFrom(backup, SourceRestore)
}

// ClearAllLedgerData empties every collection, restores default settings and
// resets the revision to zero. The cleared ledger is what gets persisted.
func (s *Store) ClearAllLedgerData() {
	_ = s.commit(SourceReset, func(t *tx) error {
		t.snap = core.EmptySnapshot(core.DefaultSettings(s.now()))
		t.draft = core.DailyData{}
		return nil
	})
}

// ClearDailyData removes all participation, committed and draft.
func (s *Store) ClearDailyData() {
	_ = s.commit(SourceUserEdit, func(t *tx) error {
		t.snap.DailyData = core.DailyData{}
		t.draft = core.DailyData{}
		return nil
	})
}

// ClearCashPayments removes every cash payment.
func (s *Store) ClearCashPayments() {
	_ = s.commit(SourceUserEdit, func(t *tx) error {
		t.snap.CashPayments = []core.CashPayment{}
		return nil
	})
}

// ClearOtherPending removes every other pending amount.
func (s *Store) ClearOtherPending() {
	_ = s.commit(SourceUserEdit, func(t *tx) error {
		t.snap.OtherPending = []core.OtherPending{}
		return nil
	})
}

// ClearCarExpenses removes every car expense.
func (s *Store) ClearCarExpenses() {
	_ = s.commit(SourceUserEdit, func(t *tx) error {
		t.snap.CarExpenses = []core.CarExpense{}
		return nil
	})
}
