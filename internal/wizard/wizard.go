// Package wizard holds the in-memory claim flow: a strictly linear
// Name → Categories → Items → Confirm draft that accumulates selections and
// submits them as one batch. Drafts live only in the registry; closing one
// discards everything.
package wizard

import (
	"errors"
	"strings"
	"time"

	"github.com/huangjulu/camping-gear/internal/allocation"
	"github.com/huangjulu/camping-gear/internal/util"
)

type Step string

const (
	StepName       Step = "name"
	StepCategories Step = "categories"
	StepItems      Step = "items"
	StepConfirm    Step = "confirm"
)

var (
	ErrNameRequired        = errors.New("name must not be empty")
	ErrTextRequired        = errors.New("text must not be empty")
	ErrNoCategories        = errors.New("no categories selected")
	ErrNoSelections        = errors.New("no items selected")
	ErrWrongStep           = errors.New("action not allowed in current step")
	ErrItemFull            = errors.New("item limit reached")
	ErrNotSelected         = errors.New("item is not selected")
	ErrCategoryNotSelected = errors.New("category is not selected")
	ErrSubmitting          = errors.New("submission already in progress")
	ErrIndexOutOfRange     = errors.New("custom entry index out of range")
)

// Selection is one in-progress pick. CustomNote is an optional annotation for
// catalog items and the user-typed description for "other" entries.
type Selection struct {
	ItemID     string
	CustomNote string
}

// CustomCategory is a session-local category created during the wizard. Its
// id is only valid inside this draft and is remapped at submission.
type CustomCategory struct {
	ID   string
	Name string
}

// Draft is one wizard session. Not safe for concurrent use; the Registry
// serializes access.
type Draft struct {
	ID                 string
	Step               Step
	UserName           string
	SelectedCategories []string
	CustomCategories   []CustomCategory
	Selections         []Selection
	Submitting         bool
	CreatedAt          time.Time
}

func newDraft() *Draft {
	return &Draft{
		ID:        util.NewID("draft"),
		Step:      StepName,
		CreatedAt: time.Now(),
	}
}

// SetName stores the trimmed name and advances to the category step.
func (d *Draft) SetName(name string) error {
	if d.Step != StepName {
		return ErrWrongStep
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	d.UserName = trimmed
	d.Step = StepCategories
	return nil
}

// ToggleCategory adds or removes a category id from the selected set.
func (d *Draft) ToggleCategory(id string) error {
	if d.Step != StepCategories {
		return ErrWrongStep
	}
	for i, selected := range d.SelectedCategories {
		if selected == id {
			d.SelectedCategories = append(d.SelectedCategories[:i], d.SelectedCategories[i+1:]...)
			return nil
		}
	}
	d.SelectedCategories = append(d.SelectedCategories, id)
	return nil
}

// AddCustomCategory appends a session-local category and selects it.
func (d *Draft) AddCustomCategory(name string) (CustomCategory, error) {
	if d.Step != StepCategories {
		return CustomCategory{}, ErrWrongStep
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return CustomCategory{}, ErrNameRequired
	}
	category := CustomCategory{ID: util.NewID("custom"), Name: trimmed}
	d.CustomCategories = append(d.CustomCategories, category)
	d.SelectedCategories = append(d.SelectedCategories, category.ID)
	return category, nil
}

// Next advances Categories → Items or Items → Confirm, enforcing the
// non-empty guards.
func (d *Draft) Next() error {
	switch d.Step {
	case StepCategories:
		if len(d.SelectedCategories) == 0 {
			return ErrNoCategories
		}
		d.Step = StepItems
	case StepItems:
		if len(d.Selections) == 0 {
			return ErrNoSelections
		}
		d.Step = StepConfirm
	default:
		return ErrWrongStep
	}
	return nil
}

// Back returns to the previous step. Leaving Confirm is blocked while a
// submission is in flight.
func (d *Draft) Back() error {
	switch d.Step {
	case StepCategories:
		d.Step = StepName
	case StepItems:
		d.Step = StepCategories
	case StepConfirm:
		if d.Submitting {
			return ErrSubmitting
		}
		d.Step = StepItems
	default:
		return ErrWrongStep
	}
	return nil
}

// IsSelected reports whether any selection references the item id.
func (d *Draft) IsSelected(itemID string) bool {
	for _, s := range d.Selections {
		if s.ItemID == itemID {
			return true
		}
	}
	return false
}

// ToggleItem selects or deselects a catalog item. Deselecting drops every
// selection with the id. Selecting a full item is a silent no-op, mirroring a
// disabled checkbox; callers that need the rejection use AddItem.
func (d *Draft) ToggleItem(snap *allocation.Snapshot, itemID, note string) error {
	if d.Step != StepItems {
		return ErrWrongStep
	}
	if d.IsSelected(itemID) {
		kept := d.Selections[:0]
		for _, s := range d.Selections {
			if s.ItemID != itemID {
				kept = append(kept, s)
			}
		}
		d.Selections = kept
		return nil
	}
	if snap.ItemFull(itemID) {
		return nil
	}
	d.Selections = append(d.Selections, Selection{ItemID: itemID, CustomNote: strings.TrimSpace(note)})
	return nil
}

// AddItem selects an item, rejecting full items with ErrItemFull. Used when
// the caller expects an explicit "limit reached" signal rather than the
// toggle no-op.
func (d *Draft) AddItem(snap *allocation.Snapshot, itemID, note string) error {
	if d.Step != StepItems {
		return ErrWrongStep
	}
	if d.IsSelected(itemID) {
		return nil
	}
	if snap.ItemFull(itemID) {
		return ErrItemFull
	}
	d.Selections = append(d.Selections, Selection{ItemID: itemID, CustomNote: strings.TrimSpace(note)})
	return nil
}

// UpdateNote replaces the note on an already-selected catalog item.
func (d *Draft) UpdateNote(itemID, note string) error {
	if d.Step != StepItems {
		return ErrWrongStep
	}
	for i, s := range d.Selections {
		if s.ItemID == itemID {
			d.Selections[i].CustomNote = strings.TrimSpace(note)
			return nil
		}
	}
	return ErrNotSelected
}

// AddCustomEntry appends one free-text selection under the synthesized
// "other" id of the given category. Duplicate texts are allowed; each call
// appends a fresh entry.
func (d *Draft) AddCustomEntry(categoryID, text string) error {
	if d.Step != StepItems {
		return ErrWrongStep
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrTextRequired
	}
	if !d.categorySelected(categoryID) {
		return ErrCategoryNotSelected
	}
	d.Selections = append(d.Selections, Selection{ItemID: OtherItemID(categoryID), CustomNote: trimmed})
	return nil
}

// RemoveCustomEntry removes the index-th selection carrying the synthesized
// id. Removal is positional so two identical texts stay independently
// removable.
func (d *Draft) RemoveCustomEntry(otherItemID string, index int) error {
	if d.Step != StepItems {
		return ErrWrongStep
	}
	seen := 0
	for i, s := range d.Selections {
		if s.ItemID != otherItemID {
			continue
		}
		if seen == index {
			d.Selections = append(d.Selections[:i], d.Selections[i+1:]...)
			return nil
		}
		seen++
	}
	return ErrIndexOutOfRange
}

// CustomEntries returns the selections under a synthesized id, in insertion
// order.
func (d *Draft) CustomEntries(otherItemID string) []Selection {
	var entries []Selection
	for _, s := range d.Selections {
		if s.ItemID == otherItemID {
			entries = append(entries, s)
		}
	}
	return entries
}

// BeginSubmit flags the draft as submitting. It enforces the Confirm-step
// guards: non-empty selection and no submission already in flight.
func (d *Draft) BeginSubmit() error {
	if d.Step != StepConfirm {
		return ErrWrongStep
	}
	if d.Submitting {
		return ErrSubmitting
	}
	if len(d.Selections) == 0 {
		return ErrNoSelections
	}
	d.Submitting = true
	return nil
}

// FailSubmit clears the in-flight flag after a store failure; the draft stays
// in Confirm with its selections intact so the user can retry.
func (d *Draft) FailSubmit() {
	d.Submitting = false
}

func (d *Draft) categorySelected(categoryID string) bool {
	for _, id := range d.SelectedCategories {
		if id == categoryID {
			return true
		}
	}
	return false
}
