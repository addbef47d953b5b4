package reconcile

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cardscan/internal/common"
	"cardscan/internal/contact"
)

// Policy resolves what happens when an operation targets an occupied slot.
type Policy string

const (
	// PolicyReplace overwrites the target slot.
	PolicyReplace Policy = "replace"
	// PolicyAppend joins the values; multi-line slots join with a newline,
	// single-line slots with a single space.
	PolicyAppend Policy = "append"
)

// TransferMode selects the field-to-field operation on an occupied target.
type TransferMode string

const (
	// ModeMove swaps the two values.
	ModeMove TransferMode = "move"
	// ModeCopy writes into the target per Policy and leaves the source intact.
	ModeCopy TransferMode = "copy"
)

const defaultSettle = 300 * time.Millisecond

// Engine routes unassigned items into record slots and moves values between
// slots. All mutations are serialized on one mutex so two simultaneous assign
// calls on the same item can never both succeed.
type Engine struct {
	mu     sync.Mutex
	record *contact.Record
	items  []contact.UnassignedItem

	// transferring guards against one user gesture committing twice: while a
	// transfer is in flight (and for a short settle window after it lands),
	// further transfer requests are rejected.
	transferring bool
	settle       time.Duration

	logger *slog.Logger
}

type Option func(*Engine)

// WithSettleDelay overrides the post-transfer debounce window.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.settle = d
		}
	}
}

func NewEngine(record *contact.Record, items []contact.UnassignedItem, logger *slog.Logger, opts ...Option) *Engine {
	if record == nil {
		record = &contact.Record{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		record: record,
		items:  items,
		settle: defaultSettle,
		logger: logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Record returns a point-in-time copy of the contact record. Callers read and
// encode the snapshot without holding the engine lock; mutations go through
// AssignItem, TransferField, and SetField on the internal record.
func (e *Engine) Record() *contact.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.record
	return &cp
}

// Items returns a snapshot of the unassigned items with their current used
// flags.
func (e *Engine) Items() []contact.UnassignedItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]contact.UnassignedItem, len(e.items))
	copy(out, e.items)
	return out
}

// AssignItem routes the item identified by sourceIndex into the named slot.
// An empty slot is filled directly; an occupied slot requires the caller to
// resolve with PolicyReplace or PolicyAppend. On success the item becomes
// used, permanently: used items are terminal and can never be assigned again.
func (e *Engine) AssignItem(sourceIndex int, key contact.FieldKey, policy Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !key.IsValid() {
		return common.NewAppError("ASSIGN_BAD_FIELD", fmt.Sprintf("unknown field %q", key), common.ErrInvalidTarget)
	}
	item := e.findItem(sourceIndex)
	if item == nil {
		return common.NewAppError("ASSIGN_NO_ITEM", fmt.Sprintf("no item with sourceIndex %d", sourceIndex), common.ErrNotFound)
	}
	if item.Used {
		return common.NewAppError("ASSIGN_ITEM_USED", "item already consumed", common.ErrInvalidTarget)
	}

	current := e.record.Get(key)
	switch {
	case current == "":
		e.record.Set(key, item.Text)
	case policy == PolicyReplace:
		e.record.Set(key, item.Text)
	case policy == PolicyAppend:
		e.record.Set(key, joinFor(key, current, item.Text))
	default:
		return common.NewAppError("ASSIGN_CONFLICT", fmt.Sprintf("field %q occupied; policy required", key), common.ErrInvalidTarget)
	}

	item.Used = true
	e.logger.Info("reconcile.assign.ok",
		"source_index", sourceIndex,
		"field", string(key),
		"policy", string(policy),
	)
	return nil
}

// TransferField moves or copies a value between two slots. An empty target is
// an unconditional move; an occupied target honors mode (move = true swap,
// copy = Replace/Append per policy). No branch ever drops a value.
func (e *Engine) TransferField(src, dst contact.FieldKey, mode TransferMode, policy Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transferring {
		return common.NewAppError("TRANSFER_IN_FLIGHT", "previous transfer still settling", common.ErrBusy)
	}
	if !src.IsValid() {
		return common.NewAppError("TRANSFER_BAD_SOURCE", fmt.Sprintf("unknown field %q", src), common.ErrInvalidSource)
	}
	if !dst.IsValid() {
		return common.NewAppError("TRANSFER_BAD_TARGET", fmt.Sprintf("unknown field %q", dst), common.ErrInvalidTarget)
	}
	if src == dst {
		return common.NewAppError("TRANSFER_SAME_FIELD", "source and target are identical", common.ErrInvalidSource)
	}

	srcVal := e.record.Get(src)
	if srcVal == "" {
		return common.NewAppError("TRANSFER_EMPTY_SOURCE", fmt.Sprintf("field %q is empty", src), common.ErrInvalidSource)
	}

	dstVal := e.record.Get(dst)
	switch {
	case dstVal == "":
		e.record.Set(dst, srcVal)
		e.record.Set(src, "")
	case mode == ModeMove:
		e.record.Set(dst, srcVal)
		e.record.Set(src, dstVal)
	case mode == ModeCopy && policy == PolicyReplace:
		e.record.Set(dst, srcVal)
	case mode == ModeCopy && policy == PolicyAppend:
		e.record.Set(dst, joinFor(dst, dstVal, srcVal))
	default:
		return common.NewAppError("TRANSFER_CONFLICT", fmt.Sprintf("field %q occupied; mode/policy required", dst), common.ErrInvalidTarget)
	}

	e.beginSettle()
	e.logger.Info("reconcile.transfer.ok",
		"source", string(src),
		"target", string(dst),
		"mode", string(mode),
		"policy", string(policy),
	)
	return nil
}

// SetField applies a direct field edit, bypassing item bookkeeping. Used for
// form typing; it is still serialized with the other mutations.
func (e *Engine) SetField(key contact.FieldKey, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !key.IsValid() {
		return common.NewAppError("EDIT_BAD_FIELD", fmt.Sprintf("unknown field %q", key), common.ErrInvalidTarget)
	}
	e.record.Set(key, value)
	return nil
}

func (e *Engine) findItem(sourceIndex int) *contact.UnassignedItem {
	for i := range e.items {
		if e.items[i].SourceIndex == sourceIndex {
			return &e.items[i]
		}
	}
	return nil
}

// beginSettle raises the in-flight flag and schedules its release. Caller
// holds e.mu.
func (e *Engine) beginSettle() {
	if e.settle == 0 {
		return
	}
	e.transferring = true
	time.AfterFunc(e.settle, func() {
		e.mu.Lock()
		e.transferring = false
		e.mu.Unlock()
	})
}

func joinFor(key contact.FieldKey, existing, added string) string {
	if key.MultiLine() {
		return existing + "\n" + added
	}
	return existing + " " + added
}
