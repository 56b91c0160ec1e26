package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/carrierd/carrierd/internal/model"
)

// ---------------------------------------------------------------------------
// API key management
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new key together with its carrier grants. KeyHash
// must already be set (use HashAPIKey); ID must be assigned by the caller.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `INSERT INTO api_keys
		(id, key_hash, key_prefix, label, can_read_all, can_write_all, expires_at, created_at)
		VALUES
		(:id, :key_hash, :key_prefix, :label, :can_read_all, :can_write_all, :expires_at, :created_at)`

	if _, err := tx.NamedExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	if err := replaceGrants(ctx, tx, key); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAPIKey returns a key and its grants by id.
func (s *Store) GetAPIKey(ctx context.Context, id string) (*model.APIKey, error) {
	return s.getAPIKey(ctx, "id", id)
}

// GetAPIKeyByHash looks up a key by the SHA-256 hash of its raw value.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	return s.getAPIKey(ctx, "key_hash", hash)
}

func (s *Store) getAPIKey(ctx context.Context, column, value string) (*model.APIKey, error) {
	var key model.APIKey
	if err := s.db.GetContext(ctx, &key, s.db.Rebind("SELECT * FROM api_keys WHERE "+column+" = ?"), value); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by %s: %w", column, err)
	}
	keys := []model.APIKey{key}
	if err := s.loadGrants(ctx, keys); err != nil {
		return nil, err
	}
	return &keys[0], nil
}

// ListAPIKeys returns all keys with their grants, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY created_at DESC, id"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if err := s.loadGrants(ctx, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// SetAPIKeyAccess replaces the key's blanket flags and explicit grant sets
// within a transaction.
func (s *Store) SetAPIKeyAccess(ctx context.Context, key *model.APIKey) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		tx.Rebind("UPDATE api_keys SET can_read_all = ?, can_write_all = ? WHERE id = ?"),
		key.CanReadAll, key.CanWriteAll, key.ID)
	if err != nil {
		return fmt.Errorf("update api key access: %w", err)
	}
	if err := expectOne(result, "update api key access"); err != nil {
		return err
	}
	if err := replaceGrants(ctx, tx, key); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAPIKey revokes a key by deleting it and its grants.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM api_keys WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return expectOne(result, "delete api key")
}

// DeleteAPIKeyByPrefix revokes the key identified by its display prefix.
func (s *Store) DeleteAPIKeyByPrefix(ctx context.Context, prefix string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM api_keys WHERE key_prefix = ?"), prefix)
	if err != nil {
		return fmt.Errorf("delete api key by prefix: %w", err)
	}
	return expectOne(result, "delete api key")
}

// UpdateAPIKeyLastUsed sets the last_used timestamp for a key.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE api_keys SET last_used = ? WHERE id = ?"), now(), id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return expectOne(result, "update api key last used")
}

type grantRow struct {
	KeyID     string `db:"key_id"`
	CarrierID string `db:"carrier_id"`
	Mode      string `db:"mode"`
}

func replaceGrants(ctx context.Context, tx *sqlx.Tx, key *model.APIKey) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_key_grants WHERE key_id = ?"), key.ID); err != nil {
		return fmt.Errorf("delete existing grants: %w", err)
	}

	const insertQ = `INSERT INTO api_key_grants (key_id, carrier_id, mode) VALUES (:key_id, :carrier_id, :mode)`
	insert := func(ids []string, mode string) error {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			row := grantRow{KeyID: key.ID, CarrierID: id, Mode: mode}
			if _, err := tx.NamedExecContext(ctx, insertQ, row); err != nil {
				return fmt.Errorf("insert %s grant for %s: %w", mode, id, err)
			}
		}
		return nil
	}
	if err := insert(key.ReadCarriers, model.GrantRead); err != nil {
		return err
	}
	return insert(key.WriteCarriers, model.GrantWrite)
}

func (s *Store) loadGrants(ctx context.Context, keys []model.APIKey) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]string, len(keys))
	for i := range keys {
		ids[i] = keys[i].ID
	}
	q, args, err := sqlx.In("SELECT key_id, carrier_id, mode FROM api_key_grants WHERE key_id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("build grants query: %w", err)
	}
	var rows []grantRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("load grants: %w", err)
	}

	read := make(map[string][]string)
	write := make(map[string][]string)
	for _, r := range rows {
		switch r.Mode {
		case model.GrantRead:
			read[r.KeyID] = append(read[r.KeyID], r.CarrierID)
		case model.GrantWrite:
			write[r.KeyID] = append(write[r.KeyID], r.CarrierID)
		}
	}
	for i := range keys {
		keys[i].ReadCarriers = sortedOrEmpty(read[keys[i].ID])
		keys[i].WriteCarriers = sortedOrEmpty(write[keys[i].ID])
	}
	return nil
}

func sortedOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	sort.Strings(ids)
	return ids
}
