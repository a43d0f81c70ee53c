package wizard

import (
	"errors"
	"testing"

	"github.com/huangjulu/camping-gear/internal/allocation"
	"github.com/huangjulu/camping-gear/internal/store"
)

func intPtr(v int) *int { return &v }

func testSnapshot() *allocation.Snapshot {
	categories := []store.Category{
		{ID: "cat-tent", Name: "帳篷"},
		{ID: "cat-kitchen", Name: "廚房"},
	}
	items := []store.Item{
		{ID: "item-living-tent", CategoryID: "cat-tent", Name: "客廳帳", SlotLimit: intPtr(1)},
		{ID: "item-stove", CategoryID: "cat-kitchen", Name: "卡式爐", SlotLimit: intPtr(2)},
		{ID: "item-pot", CategoryID: "cat-kitchen", Name: "鍋具"},
	}
	assignments := []store.Assignment{
		{ID: "a1", ItemID: "item-living-tent", UserName: "小明"},
	}
	return allocation.NewSnapshot(categories, items, assignments)
}

func draftAtItems(t *testing.T, name string, categories ...string) *Draft {
	t.Helper()
	d := newDraft()
	if err := d.SetName(name); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	for _, c := range categories {
		if err := d.ToggleCategory(c); err != nil {
			t.Fatalf("ToggleCategory(%s): %v", c, err)
		}
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next to items: %v", err)
	}
	return d
}

func TestSetNameTrimsAndGuards(t *testing.T) {
	d := newDraft()
	if err := d.SetName("   "); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("blank name: got %v, want ErrNameRequired", err)
	}
	if d.Step != StepName {
		t.Fatalf("failed SetName must not advance, step = %s", d.Step)
	}
	if err := d.SetName("  小明  "); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if d.UserName != "小明" {
		t.Fatalf("UserName = %q, want trimmed", d.UserName)
	}
	if d.Step != StepCategories {
		t.Fatalf("step = %s, want categories", d.Step)
	}
}

func TestNextGuardsEmptySteps(t *testing.T) {
	d := newDraft()
	if err := d.SetName("小明"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := d.Next(); !errors.Is(err, ErrNoCategories) {
		t.Fatalf("Next with no categories: got %v", err)
	}
	if err := d.ToggleCategory("cat-tent"); err != nil {
		t.Fatalf("ToggleCategory: %v", err)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next to items: %v", err)
	}
	if err := d.Next(); !errors.Is(err, ErrNoSelections) {
		t.Fatalf("Next with no selections: got %v", err)
	}
}

func TestToggleItemIsItsOwnInverse(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-kitchen")

	if err := d.ToggleItem(snap, "item-pot", "帶兩個"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !d.IsSelected("item-pot") {
		t.Fatalf("item should be selected after toggle")
	}
	if err := d.ToggleItem(snap, "item-pot", ""); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if d.IsSelected("item-pot") || len(d.Selections) != 0 {
		t.Fatalf("toggle twice must leave the draft unchanged, selections = %v", d.Selections)
	}
}

func TestToggleFullItemIsNoOp(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-tent")

	if err := d.ToggleItem(snap, "item-living-tent", ""); err != nil {
		t.Fatalf("toggle full item: %v", err)
	}
	if d.IsSelected("item-living-tent") {
		t.Fatalf("full item must not be selectable via toggle")
	}
}

func TestAddItemRejectsFullItem(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-tent")

	if err := d.AddItem(snap, "item-living-tent", ""); !errors.Is(err, ErrItemFull) {
		t.Fatalf("AddItem on full item: got %v, want ErrItemFull", err)
	}
	if err := d.AddItem(snap, "item-pot", ""); err != nil {
		t.Fatalf("AddItem on open item: %v", err)
	}
}

func TestDeselectDropsAllEntriesWithSameID(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-kitchen")
	otherID := OtherItemID("cat-kitchen")

	if err := d.AddCustomEntry("cat-kitchen", "砧板"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}
	if err := d.AddCustomEntry("cat-kitchen", "菜刀"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}
	if err := d.ToggleItem(snap, otherID, ""); err != nil {
		t.Fatalf("deselect via toggle: %v", err)
	}
	if len(d.Selections) != 0 {
		t.Fatalf("deselecting the other-id must drop every custom entry, got %v", d.Selections)
	}
}

func TestUpdateNoteRequiresSelection(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-kitchen")

	if err := d.UpdateNote("item-pot", "x"); !errors.Is(err, ErrNotSelected) {
		t.Fatalf("UpdateNote on unselected item: got %v", err)
	}
	if err := d.ToggleItem(snap, "item-pot", "舊備註"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := d.UpdateNote("item-pot", "  新備註  "); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if d.Selections[0].CustomNote != "新備註" {
		t.Fatalf("note = %q, want trimmed replacement", d.Selections[0].CustomNote)
	}
}

func TestRemoveCustomEntryIsPositional(t *testing.T) {
	d := draftAtItems(t, "小華", "cat-kitchen")
	otherID := OtherItemID("cat-kitchen")

	for _, text := range []string{"垃圾袋", "垃圾袋", "垃圾袋"} {
		if err := d.AddCustomEntry("cat-kitchen", text); err != nil {
			t.Fatalf("AddCustomEntry: %v", err)
		}
	}
	if err := d.RemoveCustomEntry(otherID, 1); err != nil {
		t.Fatalf("RemoveCustomEntry: %v", err)
	}
	if got := len(d.CustomEntries(otherID)); got != 2 {
		t.Fatalf("entries = %d, want 2 after positional removal", got)
	}
	if err := d.RemoveCustomEntry(otherID, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("out-of-range removal: got %v", err)
	}
}

func TestAddCustomEntryGuards(t *testing.T) {
	d := draftAtItems(t, "小華", "cat-kitchen")

	if err := d.AddCustomEntry("cat-kitchen", "   "); !errors.Is(err, ErrTextRequired) {
		t.Fatalf("blank text: got %v", err)
	}
	if err := d.AddCustomEntry("cat-tent", "天幕"); !errors.Is(err, ErrCategoryNotSelected) {
		t.Fatalf("unselected category: got %v", err)
	}
}

func TestBackFromConfirmBlockedWhileSubmitting(t *testing.T) {
	snap := testSnapshot()
	d := draftAtItems(t, "小華", "cat-kitchen")
	if err := d.ToggleItem(snap, "item-pot", ""); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next to confirm: %v", err)
	}
	if err := d.BeginSubmit(); err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	if err := d.Back(); !errors.Is(err, ErrSubmitting) {
		t.Fatalf("Back during submit: got %v", err)
	}
	if err := d.BeginSubmit(); !errors.Is(err, ErrSubmitting) {
		t.Fatalf("double BeginSubmit: got %v", err)
	}

	d.FailSubmit()
	if d.Step != StepConfirm || len(d.Selections) != 1 {
		t.Fatalf("failed submit must keep the draft intact in confirm")
	}
	if err := d.Back(); err != nil {
		t.Fatalf("Back after failed submit: %v", err)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	id := r.Open()
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	err := r.WithDraft(id, func(d *Draft) error {
		if d.Step != StepName || d.UserName != "" || len(d.Selections) != 0 {
			t.Fatalf("fresh draft must start empty at the name step")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithDraft: %v", err)
	}

	r.Close(id)
	r.Close(id) // idempotent
	if err := r.WithDraft(id, func(*Draft) error { return nil }); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("closed draft access: got %v", err)
	}

	// Reopening is a brand-new session, nothing carries over.
	id2 := r.Open()
	_ = r.WithDraft(id2, func(d *Draft) error {
		if d.ID == id {
			t.Fatalf("reopened draft must get a fresh id")
		}
		return nil
	})
}
