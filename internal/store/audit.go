package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/carrierd/carrierd/internal/model"
)

// InsertAuditEntry appends e to the audit log inside the transaction.
// Entries are never updated or deleted.
func (t *Tx) InsertAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	const q = `INSERT INTO audit_log
		(id, key_id, carrier_id, created_at, entry_type, source, old_value, new_value, external_actor)
		VALUES
		(:id, :key_id, :carrier_id, :created_at, :entry_type, :source, :old_value, :new_value, :external_actor)`

	if _, err := t.tx.NamedExecContext(ctx, q, e); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns audit entries matching f, newest first.
func (s *Store) ListAuditEntries(ctx context.Context, f model.AuditFilter) ([]model.AuditEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.CarrierID != "" {
		where = append(where, "carrier_id = ?")
		args = append(args, f.CarrierID)
	}
	if f.KeyID != "" {
		where = append(where, "key_id = ?")
		args = append(args, f.KeyID)
	}
	if f.Type != "" {
		where = append(where, "entry_type = ?")
		args = append(args, f.Type)
	}

	q := "SELECT * FROM audit_log"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q = s.dialect.limit(q+" ORDER BY created_at DESC, id DESC", f.Limit)

	entries := []model.AuditEntry{}
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
