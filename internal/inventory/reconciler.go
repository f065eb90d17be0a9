package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Reconciler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reconciler holds the in-memory inventory table and applies updates.
//
// All public methods are thread-safe.
type Reconciler struct {
	mu        sync.RWMutex
	items     map[string]*Item
	threshold int
	repo      Repository
	logger    Logger
}

// NewReconciler creates an empty reconciler.
//
// Parameters:
//   - repo: Persistence backend. May be nil to run in-memory only.
//   - threshold: Quantities at or below this are flagged as low stock.
func NewReconciler(repo Repository, threshold int) *Reconciler {
	return &Reconciler{
		items:     make(map[string]*Item),
		threshold: threshold,
		repo:      repo,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// Load populates the in-memory table from the repository.
// This should be called once on application startup.
func (r *Reconciler) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	items, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]*Item, len(items))
	for i := range items {
		item := items[i]
		r.items[item.Key] = &item
	}

	r.logger.Info("inventory loaded", "items", len(items))
	return nil
}

// Apply records an inventory change.
//
// Item identity is case-insensitive; the display name keeps first-seen
// casing. Quantities are floored at zero. The resulting Update carries
// a LowStock flag when the new quantity is at or below the threshold.
//
// Persistence is best-effort: a failed write is logged and the update
// still takes effect in memory.
//
// Parameters:
//   - ctx: Context for the persistence write
//   - name: Item display name (any casing)
//   - quantity: New quantity for ActionSet; ignored for add/remove
//   - action: One of ActionAdd, ActionRemove, ActionSet
//
// Returns:
//   - Update: The resulting item state and low-stock flag
//   - error: ErrInvalidItem or ErrInvalidAction on bad input
func (r *Reconciler) Apply(ctx context.Context, name string, quantity int, action string) (Update, error) {
	key := Normalise(name)
	if key == "" {
		return Update{}, ErrInvalidItem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok {
		item = &Item{
			Key:    key,
			Name:   strings.TrimSpace(name),
			Status: StatusOK,
		}
	}
	if item.Status == "" {
		item.Status = StatusOK
	}

	switch action {
	case ActionAdd:
		item.Quantity++
	case ActionRemove:
		if item.Quantity > 0 {
			item.Quantity--
		}
	case ActionSet:
		if quantity < 0 {
			quantity = 0
		}
		item.Quantity = quantity
	default:
		return Update{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	item.UpdatedAt = time.Now()
	r.items[key] = item

	r.persist(ctx, *item)

	update := Update{
		Item:     *item,
		Action:   action,
		LowStock: item.Quantity <= r.threshold,
	}

	r.logger.Debug("inventory applied",
		"item", item.Key,
		"action", action,
		"quantity", item.Quantity,
		"low_stock", update.LowStock,
	)

	return update, nil
}

// AttachImage records a stored photo path for an item.
//
// The item name is normalised the same way as quantity updates, so a
// photo uploaded as "Milk" attaches to the item tracked as "milk".
// Items not yet tracked are created with quantity zero.
func (r *Reconciler) AttachImage(ctx context.Context, name string, path string) (Item, error) {
	key := Normalise(name)
	if key == "" {
		return Item{}, ErrInvalidItem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok {
		item = &Item{
			Key:    key,
			Name:   strings.TrimSpace(name),
			Status: StatusOK,
		}
	}

	item.ImagePath = path
	item.UpdatedAt = time.Now()
	r.items[key] = item

	r.persist(ctx, *item)

	return *item, nil
}

// Get returns the current state of an item by display name or key.
func (r *Reconciler) Get(name string) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[Normalise(name)]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Snapshot returns a copy of all items, sorted by key.
func (r *Reconciler) Snapshot() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items
}

// persist writes an item to the repository, logging failures.
// Callers must hold the write lock.
func (r *Reconciler) persist(ctx context.Context, item Item) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Upsert(ctx, item); err != nil {
		r.logger.Error("inventory persist failed",
			"item", item.Key,
			"error", err,
		)
	}
}
