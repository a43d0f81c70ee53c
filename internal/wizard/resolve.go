package wizard

import (
	"fmt"
	"strings"

	"github.com/huangjulu/camping-gear/internal/store"
)

// Reserved catch-all rows. ReservedOtherItemID lives under the "cat-other"
// category; every catalog category additionally carries a pre-provisioned
// "item-other-<category_id>" row (created by migration) so free text entered
// under it keeps its grouping.
const (
	ReservedOtherCategoryID = "cat-other"
	ReservedOtherItemID     = "item-other"
)

// OtherItemID maps a category id to the item id its free-text entries are
// recorded under.
func OtherItemID(categoryID string) string {
	if categoryID == ReservedOtherCategoryID {
		return ReservedOtherItemID
	}
	return "item-other-" + categoryID
}

// IsSessionCategoryID reports whether the id names a session-local custom
// category, which has no catalog row of its own.
func IsSessionCategoryID(categoryID string) bool {
	return strings.HasPrefix(categoryID, "custom_")
}

// Resolve flattens the draft's selections into persistable records tagged
// with the stored name. Selections under a catalog category's other-id pass
// through unchanged (the row exists). Selections under a session-local
// category are remapped to the reserved other item, with the category name
// folded into the note so it survives the remap.
func (d *Draft) Resolve() []store.AssignmentInput {
	names := make(map[string]string, len(d.CustomCategories))
	for _, c := range d.CustomCategories {
		names[OtherItemID(c.ID)] = c.Name
	}

	records := make([]store.AssignmentInput, 0, len(d.Selections))
	for _, s := range d.Selections {
		record := store.AssignmentInput{
			ItemID:   s.ItemID,
			UserName: d.UserName,
		}
		note := s.CustomNote
		if name, ok := names[s.ItemID]; ok {
			record.ItemID = ReservedOtherItemID
			note = fmt.Sprintf("%s: %s", name, note)
		}
		if note != "" {
			record.CustomNote = &note
		}
		records = append(records, record)
	}
	return records
}
