package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/service/suppression"
)

// SuppressionStore implements suppression.Store against PostgreSQL. It is
// the single source of truth for suppression membership; the hot-path
// lookup rides the (identifier_hash, identifier_type) composite index.
type SuppressionStore struct{ db *sql.DB }

// NewSuppressionStore creates a Postgres-backed identifier index store.
func NewSuppressionStore(db *sql.DB) *SuppressionStore { return &SuppressionStore{db: db} }

// CreateList persists list metadata and all identifier records in one
// transaction. A failure at any point rolls everything back: a reader can
// never observe the list row without its identifiers.
func (s *SuppressionStore) CreateList(ctx context.Context, list *domain.SuppressionList, identifiers []domain.IdentifierRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create list: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO suppression_lists
			(id, advertiser_id, name, description, identifier_type, is_active, size, created_at, submitted_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, list.ID, list.AdvertiserID, list.Name, list.Description, list.IdentifierType,
		list.IsActive, list.Size, list.CreatedAt, list.SubmittedAt, list.LastUpdated)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return suppression.ErrDuplicateList
		}
		return fmt.Errorf("insert list: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO suppression_identifiers
			(identifier_hash, identifier, identifier_type, list_id, advertiser_id, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (list_id, identifier_hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare identifier insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range identifiers {
		if _, err := stmt.ExecContext(ctx, rec.IdentifierHash, rec.Identifier,
			rec.IdentifierType, rec.ListID, rec.AdvertiserID, rec.AddedAt); err != nil {
			return fmt.Errorf("insert identifier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create list: %w", err)
	}
	return nil
}

// GetList returns list metadata plus its full identifier set.
func (s *SuppressionStore) GetList(ctx context.Context, id string) (*domain.SuppressionList, error) {
	var l domain.SuppressionList
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, advertiser_id, name, COALESCE(description, ''), identifier_type,
		       is_active, size, created_at, submitted_at, last_updated
		FROM suppression_lists
		WHERE id = $1
	`, id).Scan(&l.ID, &l.AdvertiserID, &l.Name, &desc, &l.IdentifierType,
		&l.IsActive, &l.Size, &l.CreatedAt, &l.SubmittedAt, &l.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, suppression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	l.Description = desc.String

	ids, err := s.listIdentifiers(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Identifiers = ids
	return &l, nil
}

func (s *SuppressionStore) listIdentifiers(ctx context.Context, listID string) ([]domain.IdentifierRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier_hash, identifier, identifier_type, list_id, advertiser_id, added_at
		FROM suppression_identifiers
		WHERE list_id = $1
		ORDER BY added_at, identifier_hash
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var out []domain.IdentifierRecord
	for rows.Next() {
		var rec domain.IdentifierRecord
		if err := rows.Scan(&rec.IdentifierHash, &rec.Identifier, &rec.IdentifierType,
			&rec.ListID, &rec.AdvertiserID, &rec.AddedAt); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateList applies the allow-listed mutable fields and bumps last_updated.
func (s *SuppressionStore) UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppression_lists
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    last_updated = NOW()
		WHERE id = $1
	`, id, upd.Name, upd.Description)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

// DeleteList removes the list; identifiers cascade via the foreign key.
func (s *SuppressionStore) DeleteList(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppression_lists WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete list: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetListsByAdvertiser returns matching lists newest-updated-first with
// identifiers populated.
func (s *SuppressionStore) GetListsByAdvertiser(ctx context.Context, advertiserID string, f domain.ListFilter) ([]domain.SuppressionList, error) {
	query := `
		SELECT id, advertiser_id, name, COALESCE(description, ''), identifier_type,
		       is_active, size, created_at, submitted_at, last_updated
		FROM suppression_lists
		WHERE advertiser_id = $1`
	args := []any{advertiserID}
	if f.ActiveOnly {
		query += ` AND is_active = true`
	}
	if f.IdentifierType != "" {
		args = append(args, f.IdentifierType)
		query += fmt.Sprintf(` AND identifier_type = $%d`, len(args))
	}
	query += ` ORDER BY last_updated DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lists by advertiser: %w", err)
	}
	defer rows.Close()

	var lists []domain.SuppressionList
	for rows.Next() {
		var l domain.SuppressionList
		var desc sql.NullString
		if err := rows.Scan(&l.ID, &l.AdvertiserID, &l.Name, &desc, &l.IdentifierType,
			&l.IsActive, &l.Size, &l.CreatedAt, &l.SubmittedAt, &l.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		l.Description = desc.String
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lists {
		ids, err := s.listIdentifiers(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Identifiers = ids
	}
	return lists, nil
}

// FindAdvertisersForIdentifier is the request-time lookup: a direct indexed
// equality probe on (identifier_hash, identifier_type), filtered to active
// lists. Returns distinct advertiser ids, the matching row count, and one
// diagnostic line per matched list.
func (s *SuppressionStore) FindAdvertisersForIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.IdentifierLookup, error) {
	hash := suppression.HashIdentifier(identifier, t)

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.advertiser_id, l.name
		FROM suppression_identifiers i
		JOIN suppression_lists l ON l.id = i.list_id
		WHERE i.identifier_hash = $1 AND i.identifier_type = $2 AND l.is_active = true
	`, hash, t)
	if err != nil {
		return nil, fmt.Errorf("identifier lookup: %w", err)
	}
	defer rows.Close()

	lookup := &domain.IdentifierLookup{}
	seen := make(map[string]bool)
	for rows.Next() {
		var advertiserID, listName string
		if err := rows.Scan(&advertiserID, &listName); err != nil {
			return nil, fmt.Errorf("scan lookup row: %w", err)
		}
		lookup.MatchCount++
		lookup.Details = append(lookup.Details, fmt.Sprintf("matched list %q (advertiser %s)", listName, advertiserID))
		if !seen[advertiserID] {
			seen[advertiserID] = true
			lookup.Advertisers = append(lookup.Advertisers, advertiserID)
		}
	}
	return lookup, rows.Err()
}
