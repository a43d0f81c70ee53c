package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huangjulu/camping-gear/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	const query = `SELECT id, name, icon, sort_order FROM categories ORDER BY sort_order, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) ListItems(ctx context.Context) ([]Item, error) {
	const query = `SELECT id, category_id, name, slot_limit, note, sort_order FROM items ORDER BY sort_order, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.SlotLimit, &i.Note, &i.SortOrder); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListAssignments(ctx context.Context) ([]Assignment, error) {
	const query = `SELECT id, item_id, user_name, custom_note, created_at FROM assignments ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.UserName, &a.CustomNote, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// InsertAssignments writes the whole batch in one transaction; if the store
// rejects any record the entire call fails and nothing is persisted.
func (s *PostgresStore) InsertAssignments(ctx context.Context, records []AssignmentInput) ([]Assignment, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}

	const insert = `
		INSERT INTO assignments (id, item_id, user_name, custom_note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, item_id, user_name, custom_note, created_at
	`
	inserted := make([]Assignment, 0, len(records))
	for _, record := range records {
		var a Assignment
		id := util.NewID("asg")
		err := tx.QueryRowContext(ctx, insert, id, record.ItemID, record.UserName, record.CustomNote).
			Scan(&a.ID, &a.ItemID, &a.UserName, &a.CustomNote, &a.CreatedAt)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert assignment for %s: %w", record.ItemID, err)
		}
		inserted = append(inserted, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

// DeleteAssignment removes exactly one claim; sql.ErrNoRows when the id is
// unknown (possibly already deleted by another viewer).
func (s *PostgresStore) DeleteAssignment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
