// Package allocation answers "who claimed what" and "can this item still be
// claimed" from an immutable snapshot of the catalog and the live claims.
//
// Everything here is recomputed from scratch on each change notification;
// there is no incremental bookkeeping. Slot limits are advisory: two sessions
// that both read a stale snapshot can together exceed a limit, and nothing in
// this package (or the store) detects or rolls that back.
package allocation

import (
	"sort"

	"github.com/huangjulu/camping-gear/internal/store"
)

// Quota is the used/total pair shown for a category whose items declare slot
// limits. Categories with no limited items have no quota at all.
type Quota struct {
	Used  int `json:"used"`
	Total int `json:"total"`
}

// CountClaims returns the number of live claims on itemID.
func CountClaims(itemID string, assignments []store.Assignment) int {
	count := 0
	for _, a := range assignments {
		if a.ItemID == itemID {
			count++
		}
	}
	return count
}

// IsFull reports whether the item has reached its slot limit. Items without
// a limit are never full.
func IsFull(item store.Item, assignments []store.Assignment) bool {
	if item.SlotLimit == nil {
		return false
	}
	return CountClaims(item.ID, assignments) >= *item.SlotLimit
}

// CategoryQuota sums slot limits and claim counts over the items of the
// category that declare a limit. Used is the plain sum of live claims, so it
// can exceed Total after concurrent submissions overshoot a limit; the quota
// display then surfaces the overshoot instead of hiding it. The second return
// is false when no item in the category is limited; such categories are
// unconstrained and must not be rendered as 0/0.
func CategoryQuota(category store.Category, items []store.Item, assignments []store.Assignment) (Quota, bool) {
	var quota Quota
	limited := false
	for _, item := range items {
		if item.CategoryID != category.ID || item.SlotLimit == nil {
			continue
		}
		limited = true
		quota.Total += *item.SlotLimit
		quota.Used += CountClaims(item.ID, assignments)
	}
	if !limited {
		return Quota{}, false
	}
	return quota, true
}

// DistinctClaimants returns the deduplicated claimant names in ascending byte
// order; these become the table's columns.
func DistinctClaimants(assignments []store.Assignment) []string {
	seen := make(map[string]struct{}, len(assignments))
	var names []string
	for _, a := range assignments {
		if _, ok := seen[a.UserName]; ok {
			continue
		}
		seen[a.UserName] = struct{}{}
		names = append(names, a.UserName)
	}
	sort.Strings(names)
	return names
}

// ItemsByCategory groups items by their category, preserving input order
// (the store already sorts by sort_order).
func ItemsByCategory(items []store.Item) map[string][]store.Item {
	grouped := make(map[string][]store.Item)
	for _, item := range items {
		grouped[item.CategoryID] = append(grouped[item.CategoryID], item)
	}
	return grouped
}

// AssignmentsByItem groups claims by item, preserving input order
// (the store already sorts by created_at).
func AssignmentsByItem(assignments []store.Assignment) map[string][]store.Assignment {
	grouped := make(map[string][]store.Assignment)
	for _, a := range assignments {
		grouped[a.ItemID] = append(grouped[a.ItemID], a)
	}
	return grouped
}

// Snapshot is one consistent read of the catalog and claims plus the derived
// lookups the wizard and the sheet projection need. It is never mutated.
type Snapshot struct {
	Categories  []store.Category
	Items       []store.Item
	Assignments []store.Assignment

	itemByID     map[string]store.Item
	claimCounts  map[string]int
	itemsByCat   map[string][]store.Item
	claimsByItem map[string][]store.Assignment
}

// NewSnapshot derives the lookup maps once, up front.
func NewSnapshot(categories []store.Category, items []store.Item, assignments []store.Assignment) *Snapshot {
	snap := &Snapshot{
		Categories:   categories,
		Items:        items,
		Assignments:  assignments,
		itemByID:     make(map[string]store.Item, len(items)),
		claimCounts:  make(map[string]int, len(items)),
		itemsByCat:   ItemsByCategory(items),
		claimsByItem: AssignmentsByItem(assignments),
	}
	for _, item := range items {
		snap.itemByID[item.ID] = item
	}
	for _, a := range assignments {
		snap.claimCounts[a.ItemID]++
	}
	return snap
}

// Item looks up an item by id.
func (s *Snapshot) Item(id string) (store.Item, bool) {
	item, ok := s.itemByID[id]
	return item, ok
}

// ClaimCount returns the live claim count for an item id.
func (s *Snapshot) ClaimCount(itemID string) int {
	return s.claimCounts[itemID]
}

// ItemFull reports whether the item with the given id is at its limit.
// Unknown ids (synthesized "other" ids for session-local categories) are
// never full.
func (s *Snapshot) ItemFull(itemID string) bool {
	item, ok := s.itemByID[itemID]
	if !ok {
		return false
	}
	if item.SlotLimit == nil {
		return false
	}
	return s.claimCounts[itemID] >= *item.SlotLimit
}

// CategoryItems returns the items of a category in catalog order.
func (s *Snapshot) CategoryItems(categoryID string) []store.Item {
	return s.itemsByCat[categoryID]
}

// ItemAssignments returns the claims on an item in creation order.
func (s *Snapshot) ItemAssignments(itemID string) []store.Assignment {
	return s.claimsByItem[itemID]
}
