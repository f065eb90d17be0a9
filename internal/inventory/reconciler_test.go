package inventory

import (
	"context"
	"errors"
	"testing"
)

// mockRepository is an in-memory Repository for testing.
type mockRepository struct {
	items     map[string]Item
	upserts   int
	upsertErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{items: make(map[string]Item)}
}

func (m *mockRepository) List(_ context.Context) ([]Item, error) {
	var items []Item
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *mockRepository) Get(_ context.Context, key string) (*Item, error) {
	item, ok := m.items[key]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

func (m *mockRepository) Upsert(_ context.Context, item Item) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.items[item.Key] = item
	return nil
}

func TestApply_CaseInsensitiveIdentity(t *testing.T) {
	r := NewReconciler(newMockRepository(), 2)
	ctx := context.Background()

	if _, err := r.Apply(ctx, "Milk", 0, ActionAdd); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	update, err := r.Apply(ctx, "MILK", 0, ActionAdd)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if update.Item.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2 (same item)", update.Item.Quantity)
	}
	// Display name keeps first-seen casing
	if update.Item.Name != "Milk" {
		t.Errorf("Name = %q, want %q", update.Item.Name, "Milk")
	}
	if update.Item.Key != "milk" {
		t.Errorf("Key = %q, want %q", update.Item.Key, "milk")
	}
	if len(r.Snapshot()) != 1 {
		t.Errorf("Snapshot() has %d items, want 1", len(r.Snapshot()))
	}
}

func TestApply_SetsStatus(t *testing.T) {
	repo := newMockRepository()
	r := NewReconciler(repo, 2)
	ctx := context.Background()

	update, err := r.Apply(ctx, "milk", 0, ActionAdd)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if update.Item.Status != StatusOK {
		t.Errorf("Status = %q, want %q", update.Item.Status, StatusOK)
	}
	if repo.items["milk"].Status != StatusOK {
		t.Errorf("persisted Status = %q, want %q", repo.items["milk"].Status, StatusOK)
	}

	// Items loaded from older rows without a status are backfilled
	r.items["cheese"] = &Item{Key: "cheese", Name: "cheese", Quantity: 5}
	update, err = r.Apply(ctx, "cheese", 0, ActionRemove)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if update.Item.Status != StatusOK {
		t.Errorf("backfilled Status = %q, want %q", update.Item.Status, StatusOK)
	}
}

func TestApply_Actions(t *testing.T) {
	tests := []struct {
		name  string
		setup []struct {
			action string
			qty    int
		}
		action string
		qty    int
		want   int
	}{
		{
			name:   "add from empty",
			action: ActionAdd,
			want:   1,
		},
		{
			name: "remove floors at zero",
			setup: []struct {
				action string
				qty    int
			}{
				{ActionRemove, 0},
			},
			action: ActionRemove,
			want:   0,
		},
		{
			name:   "set verbatim",
			action: ActionSet,
			qty:    7,
			want:   7,
		},
		{
			name:   "set negative clamps to zero",
			action: ActionSet,
			qty:    -3,
			want:   0,
		},
		{
			name: "remove after add",
			setup: []struct {
				action string
				qty    int
			}{
				{ActionAdd, 0},
				{ActionAdd, 0},
			},
			action: ActionRemove,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(nil, 2)
			ctx := context.Background()

			for _, s := range tt.setup {
				if _, err := r.Apply(ctx, "eggs", s.qty, s.action); err != nil {
					t.Fatalf("setup Apply() error = %v", err)
				}
			}

			update, err := r.Apply(ctx, "eggs", tt.qty, tt.action)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if update.Item.Quantity != tt.want {
				t.Errorf("Quantity = %d, want %d", update.Item.Quantity, tt.want)
			}
		})
	}
}

func TestApply_LowStockThreshold(t *testing.T) {
	r := NewReconciler(nil, 2)
	ctx := context.Background()

	update, _ := r.Apply(ctx, "butter", 5, ActionSet)
	if update.LowStock {
		t.Error("LowStock = true at quantity 5, threshold 2")
	}

	update, _ = r.Apply(ctx, "butter", 2, ActionSet)
	if !update.LowStock {
		t.Error("LowStock = false at quantity 2, threshold 2 (boundary is inclusive)")
	}

	update, _ = r.Apply(ctx, "butter", 0, ActionSet)
	if !update.LowStock {
		t.Error("LowStock = false at quantity 0")
	}
}

func TestApply_InvalidInput(t *testing.T) {
	r := NewReconciler(nil, 2)
	ctx := context.Background()

	if _, err := r.Apply(ctx, "", 0, ActionAdd); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("Apply(empty name) error = %v, want ErrInvalidItem", err)
	}
	if _, err := r.Apply(ctx, "   ", 0, ActionAdd); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("Apply(blank name) error = %v, want ErrInvalidItem", err)
	}
	if _, err := r.Apply(ctx, "milk", 0, "increment"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Apply(bad action) error = %v, want ErrInvalidAction", err)
	}
}

func TestApply_PersistFailureDoesNotPropagate(t *testing.T) {
	repo := newMockRepository()
	repo.upsertErr = errors.New("disk full")

	r := NewReconciler(repo, 2)
	ctx := context.Background()

	update, err := r.Apply(ctx, "milk", 0, ActionAdd)
	if err != nil {
		t.Fatalf("Apply() error = %v, persistence failures must not propagate", err)
	}
	if update.Item.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1 (in-memory update survives)", update.Item.Quantity)
	}

	// The in-memory state keeps accumulating despite persist failures
	update, _ = r.Apply(ctx, "milk", 0, ActionAdd)
	if update.Item.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", update.Item.Quantity)
	}
}

func TestAttachImage(t *testing.T) {
	repo := newMockRepository()
	r := NewReconciler(repo, 2)
	ctx := context.Background()

	if _, err := r.Apply(ctx, "Milk", 3, ActionSet); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// Different casing attaches to the same item
	item, err := r.AttachImage(ctx, "MILK", "uploads/fridge_123_milk.jpg")
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if item.ImagePath != "uploads/fridge_123_milk.jpg" {
		t.Errorf("ImagePath = %q", item.ImagePath)
	}
	if item.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3 (attach preserves quantity)", item.Quantity)
	}

	// Attaching to an untracked item creates it at quantity zero
	item, err = r.AttachImage(ctx, "cheese", "uploads/fridge_456_cheese.jpg")
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if item.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0 for new item", item.Quantity)
	}
	if item.Status != StatusOK {
		t.Errorf("Status = %q, want %q for new item", item.Status, StatusOK)
	}
}

func TestLoad(t *testing.T) {
	repo := newMockRepository()
	repo.items["milk"] = Item{Key: "milk", Name: "Milk", Quantity: 4}
	repo.items["eggs"] = Item{Key: "eggs", Name: "Eggs", Quantity: 12}

	r := NewReconciler(repo, 2)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	item, ok := r.Get("milk")
	if !ok {
		t.Fatal("Get(milk) ok = false after Load")
	}
	if item.Quantity != 4 {
		t.Errorf("Quantity = %d, want 4", item.Quantity)
	}
	if len(r.Snapshot()) != 2 {
		t.Errorf("Snapshot() has %d items, want 2", len(r.Snapshot()))
	}
}

func TestSnapshot_SortedByKey(t *testing.T) {
	r := NewReconciler(nil, 2)
	ctx := context.Background()

	r.Apply(ctx, "Yoghurt", 1, ActionSet) //nolint:errcheck // Test setup
	r.Apply(ctx, "apples", 1, ActionSet)  //nolint:errcheck // Test setup
	r.Apply(ctx, "Milk", 1, ActionSet)    //nolint:errcheck // Test setup

	items := r.Snapshot()
	want := []string{"apples", "milk", "yoghurt"}
	for i, key := range want {
		if items[i].Key != key {
			t.Errorf("items[%d].Key = %q, want %q", i, items[i].Key, key)
		}
	}
}
