package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLFallback searches claims directly in Postgres with ILIKE matching. It
// needs no index maintenance and serves as the always-available fallback when
// Meilisearch is absent or unhealthy.
type SQLFallback struct {
	db *sql.DB
}

func NewSQLFallback(db *sql.DB) *SQLFallback {
	return &SQLFallback{db: db}
}

// Healthy always reports true; reachability is the database's problem and
// surfaces as a query error.
func (s *SQLFallback) Healthy() bool {
	return true
}

// Search matches the pattern against claimant names, item names, category
// names, and notes.
func (s *SQLFallback) Search(q Query) ([]Result, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	pattern := "%" + q.Text + "%"

	const query = `
		SELECT a.id, a.user_name, a.item_id, i.name, c.name, COALESCE(a.custom_note, '')
		FROM assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE a.user_name ILIKE $1
		   OR i.name ILIKE $1
		   OR c.name ILIKE $1
		   OR a.custom_note ILIKE $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, pattern, limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sql search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.UserName, &r.ItemID, &r.ItemName, &r.CategoryName, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*)
		FROM assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE a.user_name ILIKE $1
		   OR i.name ILIKE $1
		   OR c.name ILIKE $1
		   OR a.custom_note ILIKE $1
	`
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sql search count: %w", err)
	}
	return results, total, nil
}
