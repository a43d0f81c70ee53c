package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/huangjulu/camping-gear/internal/allocation"
	"github.com/huangjulu/camping-gear/internal/config"
	"github.com/huangjulu/camping-gear/internal/export"
	"github.com/huangjulu/camping-gear/internal/history"
	"github.com/huangjulu/camping-gear/internal/notify"
	"github.com/huangjulu/camping-gear/internal/search"
	"github.com/huangjulu/camping-gear/internal/store"
	"github.com/huangjulu/camping-gear/internal/wizard"
)

type dataStore interface {
	ListCategories(ctx context.Context) ([]store.Category, error)
	ListItems(ctx context.Context) ([]store.Item, error)
	ListAssignments(ctx context.Context) ([]store.Assignment, error)
	InsertAssignments(ctx context.Context, records []store.AssignmentInput) ([]store.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexAssignments(records []search.AssignmentRecord)
	DeleteAssignment(id string)
}

type historyService interface {
	Record(roster history.Roster, actor, message string) (history.CommitInfo, error)
	List(limit int) ([]history.CommitInfo, error)
}

type archiveService interface {
	Store(ctx context.Context, result *export.Result) (string, error)
}

type Service struct {
	cfg     config.Config
	store   dataStore
	broker  notify.Broker
	search  searchService
	export  *export.Service
	history historyService
	archive archiveService
	drafts  *wizard.Registry
}

func New(cfg config.Config, dataStore dataStore, broker notify.Broker, searchSvc searchService, exportSvc *export.Service, historySvc historyService) *Service {
	return &Service{
		cfg:     cfg,
		store:   dataStore,
		broker:  broker,
		search:  searchSvc,
		export:  exportSvc,
		history: historySvc,
		drafts:  wizard.NewRegistry(),
	}
}

// NewWithArchive additionally keeps a copy of every export in object storage.
func NewWithArchive(cfg config.Config, dataStore dataStore, broker notify.Broker, searchSvc searchService, exportSvc *export.Service, historySvc historyService, archive archiveService) *Service {
	service := New(cfg, dataStore, broker, searchSvc, exportSvc, historySvc)
	service.archive = archive
	return service
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Snapshot takes one consistent-enough read of the catalog and claims. The
// three reads are not transactional; the sheet is read-mostly and every
// change notification triggers a fresh snapshot anyway.
func (s *Service) Snapshot(ctx context.Context) (*allocation.Snapshot, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	return allocation.NewSnapshot(categories, items, assignments), nil
}

// Sheet builds the claimant-matrix projection the table renders. query, when
// non-empty, marks matching claimant columns as highlighted.
func (s *Service) Sheet(ctx context.Context, query string) (map[string]any, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	claimants := allocation.DistinctClaimants(snap.Assignments)
	columns := make([]map[string]any, 0, len(claimants))
	for _, name := range claimants {
		columns = append(columns, map[string]any{
			"name":        name,
			"highlighted": needle != "" && strings.Contains(strings.ToLower(name), needle),
		})
	}

	categories := make([]map[string]any, 0, len(snap.Categories))
	for _, category := range snap.Categories {
		items := snap.CategoryItems(category.ID)
		if len(items) == 0 {
			continue
		}

		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			claims := snap.ItemAssignments(item.ID)
			if strings.HasPrefix(item.ID, "item-other-") && len(claims) == 0 {
				// Catch-all rows only appear once someone has used them.
				continue
			}
			cells := make([]map[string]any, 0, len(claims))
			for _, a := range claims {
				cell := map[string]any{
					"id":       a.ID,
					"userName": a.UserName,
				}
				if a.CustomNote != nil {
					cell["note"] = *a.CustomNote
				}
				cells = append(cells, cell)
			}
			row := map[string]any{
				"id":          item.ID,
				"name":        item.Name,
				"claimCount":  len(claims),
				"full":        allocation.IsFull(item, snap.Assignments),
				"assignments": cells,
			}
			if item.SlotLimit != nil {
				row["slotLimit"] = *item.SlotLimit
			}
			if item.Note != nil {
				row["note"] = *item.Note
			}
			rows = append(rows, row)
		}

		entry := map[string]any{
			"id":    category.ID,
			"name":  category.Name,
			"items": rows,
		}
		if category.Icon != nil {
			entry["icon"] = *category.Icon
		}
		if quota, ok := allocation.CategoryQuota(category, snap.Items, snap.Assignments); ok {
			entry["quota"] = quota
		}
		categories = append(categories, entry)
	}

	return map[string]any{
		"title":      s.cfg.SheetTitle,
		"subtitle":   s.cfg.SheetSubtitle,
		"claimants":  columns,
		"categories": categories,
	}, nil
}

// Assignments returns the raw claim list in creation order.
func (s *Service) Assignments(ctx context.Context) ([]store.Assignment, error) {
	return s.store.ListAssignments(ctx)
}

// DeleteAssignment removes one claim, notifies subscribers, and records the
// change.
func (s *Service) DeleteAssignment(ctx context.Context, id string) error {
	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	claimsDeletedTotal.Inc()
	s.search.DeleteAssignment(id)
	s.publishChange(ctx)
	s.recordHistory(ctx, "someone", "Remove claim "+id)
	return nil
}

// OpenDraft starts a fresh wizard session.
func (s *Service) OpenDraft() string {
	draftsOpenedTotal.Inc()
	return s.drafts.Open()
}

// CloseDraft discards a wizard session and all its draft state.
func (s *Service) CloseDraft(id string) {
	s.drafts.Close(id)
}

// WithDraft exposes serialized draft access to the HTTP layer.
func (s *Service) WithDraft(id string, fn func(*wizard.Draft) error) error {
	return s.drafts.WithDraft(id, fn)
}

// DraftView renders a draft for the client: current step, stored name,
// selections, custom categories.
func (s *Service) DraftView(id string) (map[string]any, error) {
	var view map[string]any
	err := s.drafts.WithDraft(id, func(d *wizard.Draft) error {
		selections := make([]map[string]any, 0, len(d.Selections))
		for _, sel := range d.Selections {
			entry := map[string]any{"itemId": sel.ItemID}
			if sel.CustomNote != "" {
				entry["note"] = sel.CustomNote
			}
			selections = append(selections, entry)
		}
		custom := make([]map[string]any, 0, len(d.CustomCategories))
		for _, c := range d.CustomCategories {
			custom = append(custom, map[string]any{"id": c.ID, "name": c.Name})
		}
		view = map[string]any{
			"id":                 d.ID,
			"step":               d.Step,
			"userName":           d.UserName,
			"selectedCategories": append([]string{}, d.SelectedCategories...),
			"customCategories":   custom,
			"selections":         selections,
			"submitting":         d.Submitting,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ConfirmDraft submits the draft's selections as one batch of claims. The
// registry lock is held only to flip the submitting flag and copy the
// records; the store write happens outside it. On failure the draft stays in
// Confirm with everything intact.
func (s *Service) ConfirmDraft(ctx context.Context, id string) ([]store.Assignment, string, error) {
	var (
		records  []store.AssignmentInput
		userName string
	)
	err := s.drafts.WithDraft(id, func(d *wizard.Draft) error {
		if err := d.BeginSubmit(); err != nil {
			return err
		}
		records = d.Resolve()
		userName = d.UserName
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	inserted, err := s.store.InsertAssignments(ctx, records)
	if err != nil {
		_ = s.drafts.WithDraft(id, func(d *wizard.Draft) error {
			d.FailSubmit()
			return nil
		})
		return nil, "", domainError(http.StatusBadGateway, "STORE_ERROR", "Could not save claims, please retry", nil)
	}

	s.drafts.Close(id)
	claimsSubmittedTotal.Add(float64(len(inserted)))
	s.indexAssignments(ctx, inserted)
	s.publishChange(ctx)
	s.recordHistory(ctx, userName, fmt.Sprintf("%s claims %d item(s)", userName, len(inserted)))

	message := fmt.Sprintf("🎉 %s 認領成功！", userName)
	return inserted, message, nil
}

// SearchClaims runs a claim search through the facade.
func (s *Service) SearchClaims(q search.Query) search.Response {
	return s.search.Search(q)
}

// ExportSheet renders the current sheet in the requested format.
func (s *Service) ExportSheet(ctx context.Context, format export.Format) (*export.Result, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data := export.SheetData{
		Title:       s.cfg.SheetTitle,
		Subtitle:    s.cfg.SheetSubtitle,
		GeneratedAt: time.Now(),
		Claimants:   allocation.DistinctClaimants(snap.Assignments),
	}
	for _, category := range snap.Categories {
		items := snap.CategoryItems(category.ID)
		if len(items) == 0 {
			continue
		}
		section := export.CategorySection{Name: category.Name}
		if category.Icon != nil {
			section.Icon = *category.Icon
		}
		for _, item := range items {
			claims := snap.ItemAssignments(item.ID)
			if strings.HasPrefix(item.ID, "item-other-") && len(claims) == 0 {
				continue
			}
			row := export.ItemRow{Name: item.Name}
			if item.Note != nil {
				row.Note = *item.Note
			}
			if item.SlotLimit != nil {
				row.Quota = fmt.Sprintf("%d/%d", len(claims), *item.SlotLimit)
			}
			for _, a := range claims {
				cell := export.ClaimCell{UserName: a.UserName}
				if a.CustomNote != nil {
					cell.Note = *a.CustomNote
				}
				row.Claims = append(row.Claims, cell)
			}
			section.Items = append(section.Items, row)
		}
		data.Sections = append(data.Sections, section)
	}

	result, err := s.export.Export(data, format)
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		go s.archiveExport(result)
	}
	return result, nil
}

// archiveExport uploads a generated export in the background. Best effort:
// the download already succeeded, a failed upload only loses the archive copy.
func (s *Service) archiveExport(result *export.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	name, err := s.archive.Store(ctx, result)
	if err != nil {
		slog.Warn("archive export", "filename", result.Filename, "error", err)
		return
	}
	slog.Info("archived export", "object", name)
}

// History lists the recorded roster changes, newest first.
func (s *Service) History(limit int) ([]history.CommitInfo, error) {
	return s.history.List(limit)
}

// SubscribeChanges hands out a change-feed subscription for SSE bridging.
func (s *Service) SubscribeChanges(ctx context.Context) (<-chan notify.Event, func()) {
	return s.broker.Subscribe(ctx)
}

func (s *Service) publishChange(ctx context.Context) {
	event := notify.Event{Kind: notify.KindAssignments, At: time.Now()}
	if err := s.broker.Publish(ctx, event); err != nil {
		slog.Warn("publish change event", "error", err)
	}
}

func (s *Service) indexAssignments(ctx context.Context, assignments []store.Assignment) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		slog.Warn("index assignments: snapshot", "error", err)
		return
	}
	records := make([]search.AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		record := search.AssignmentRecord{
			ID:       a.ID,
			UserName: a.UserName,
			ItemID:   a.ItemID,
		}
		if a.CustomNote != nil {
			record.Note = *a.CustomNote
		}
		if item, ok := snap.Item(a.ItemID); ok {
			record.ItemName = item.Name
			for _, c := range snap.Categories {
				if c.ID == item.CategoryID {
					record.CategoryName = c.Name
					break
				}
			}
		}
		records = append(records, record)
	}
	s.search.IndexAssignments(records)
}

// recordHistory snapshots the roster after a mutation. Best effort: a failed
// commit only loses audit detail, never claim data.
func (s *Service) recordHistory(ctx context.Context, actor, message string) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		slog.Warn("history snapshot", "error", err)
		return
	}
	roster := history.Roster{GeneratedAt: time.Now()}
	for _, a := range snap.Assignments {
		claim := history.Claim{
			ID:        a.ID,
			ItemID:    a.ItemID,
			UserName:  a.UserName,
			CreatedAt: a.CreatedAt,
		}
		if a.CustomNote != nil {
			claim.Note = *a.CustomNote
		}
		if item, ok := snap.Item(a.ItemID); ok {
			claim.ItemName = item.Name
		}
		roster.Claims = append(roster.Claims, claim)
	}
	if _, err := s.history.Record(roster, actor, message); err != nil {
		slog.Warn("record history", "error", err)
	}
}
