package store

import "time"

// Category is one section of the gear sheet. Rows are seeded by migration and
// ordered by SortOrder; the reserved "cat-other" category hosts free-text
// claims that belong to no catalog category.
type Category struct {
	ID        string
	Name      string
	Icon      *string
	SortOrder int
}

// Item is one claimable entry. A nil SlotLimit means the item can be claimed
// any number of times. Every category also carries an "item-other-<category>"
// row so free-text claims stay grouped under their category.
type Item struct {
	ID         string
	CategoryID string
	Name       string
	SlotLimit  *int
	Note       *string
	SortOrder  int
}

// Assignment is one person claiming one unit of one item. CustomNote is an
// annotation for catalog items; for "other" items it carries the user-typed
// description and is part of the claim's identity.
type Assignment struct {
	ID         string
	ItemID     string
	UserName   string
	CustomNote *string
	CreatedAt  time.Time
}

// AssignmentInput is the insertable shape of an Assignment; the store fills
// in ID and CreatedAt.
type AssignmentInput struct {
	ItemID     string
	UserName   string
	CustomNote *string
}
