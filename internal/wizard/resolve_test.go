package wizard

import (
	"strings"
	"testing"

	"github.com/huangjulu/camping-gear/internal/allocation"
	"github.com/huangjulu/camping-gear/internal/store"
)

func TestOtherItemID(t *testing.T) {
	if got := OtherItemID(ReservedOtherCategoryID); got != ReservedOtherItemID {
		t.Fatalf("OtherItemID(cat-other) = %q, want %q", got, ReservedOtherItemID)
	}
	if got := OtherItemID("cat-kitchen"); got != "item-other-cat-kitchen" {
		t.Fatalf("OtherItemID(cat-kitchen) = %q", got)
	}
}

func TestResolveCatalogSelections(t *testing.T) {
	d := draftAtItems(t, "小明", "cat-kitchen")
	snap := allocation.NewSnapshot(nil, []store.Item{
		{ID: "item-pot", CategoryID: "cat-kitchen", Name: "鍋具"},
	}, nil)

	if err := d.ToggleItem(snap, "item-pot", "帶兩個"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := d.AddCustomEntry("cat-kitchen", "砧板"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}

	records := d.Resolve()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ItemID != "item-pot" || records[0].UserName != "小明" {
		t.Fatalf("catalog record = %+v", records[0])
	}
	if records[0].CustomNote == nil || *records[0].CustomNote != "帶兩個" {
		t.Fatalf("catalog note = %v, want 帶兩個", records[0].CustomNote)
	}
	if records[1].ItemID != "item-other-cat-kitchen" {
		t.Fatalf("custom entry under a catalog category must keep its grouping, got %q", records[1].ItemID)
	}
	if records[1].CustomNote == nil || *records[1].CustomNote != "砧板" {
		t.Fatalf("custom entry note = %v", records[1].CustomNote)
	}
}

func TestResolveKeepsPerCategoryOtherEntriesDistinct(t *testing.T) {
	d := draftAtItems(t, "小明", "cat-tent", "cat-kitchen")

	if err := d.AddCustomEntry("cat-tent", "充氣床墊"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}
	if err := d.AddCustomEntry("cat-kitchen", "防蚊液"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}

	records := d.Resolve()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 distinct claims", len(records))
	}
	if records[0].ItemID != "item-other-cat-tent" || *records[0].CustomNote != "充氣床墊" {
		t.Errorf("tent record = %+v", records[0])
	}
	if records[1].ItemID != "item-other-cat-kitchen" || *records[1].CustomNote != "防蚊液" {
		t.Errorf("kitchen record = %+v", records[1])
	}
}

func TestResolveRemapsSessionCategories(t *testing.T) {
	d := newDraft()
	if err := d.SetName("小華"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	category, err := d.AddCustomCategory("攝影器材")
	if err != nil {
		t.Fatalf("AddCustomCategory: %v", err)
	}
	if !IsSessionCategoryID(category.ID) {
		t.Fatalf("custom category id %q should be session-local", category.ID)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next to items: %v", err)
	}
	if err := d.AddCustomEntry(category.ID, "腳架"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}

	records := d.Resolve()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].ItemID != ReservedOtherItemID {
		t.Fatalf("session-local entry must remap to %q, got %q", ReservedOtherItemID, records[0].ItemID)
	}
	if records[0].CustomNote == nil || *records[0].CustomNote != "攝影器材: 腳架" {
		t.Fatalf("note = %v, want category name folded in", records[0].CustomNote)
	}
}

func TestResolveKeepsTwoSessionCategoriesDistinct(t *testing.T) {
	d := newDraft()
	if err := d.SetName("小華"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	first, err := d.AddCustomCategory("攝影器材")
	if err != nil {
		t.Fatalf("AddCustomCategory: %v", err)
	}
	second, err := d.AddCustomCategory("釣魚用具")
	if err != nil {
		t.Fatalf("AddCustomCategory: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("two custom categories must get distinct ids")
	}
	if err := d.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := d.AddCustomEntry(first.ID, "腳架"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}
	if err := d.AddCustomEntry(second.ID, "魚竿"); err != nil {
		t.Fatalf("AddCustomEntry: %v", err)
	}

	// Draft-side they stay separate even though both land on item-other.
	if got := len(d.CustomEntries(OtherItemID(first.ID))); got != 1 {
		t.Fatalf("first category entries = %d, want 1", got)
	}
	if got := len(d.CustomEntries(OtherItemID(second.ID))); got != 1 {
		t.Fatalf("second category entries = %d, want 1", got)
	}

	records := d.Resolve()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.ItemID != ReservedOtherItemID {
			t.Fatalf("record item = %q, want %q", r.ItemID, ReservedOtherItemID)
		}
	}
	if !strings.HasPrefix(*records[0].CustomNote, "攝影器材: ") || !strings.HasPrefix(*records[1].CustomNote, "釣魚用具: ") {
		t.Fatalf("notes must keep their category names: %q / %q", *records[0].CustomNote, *records[1].CustomNote)
	}
}
