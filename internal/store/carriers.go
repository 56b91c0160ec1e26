package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/carrierd/carrierd/internal/model"
)

// ---------------------------------------------------------------------------
// Carrier reads
// ---------------------------------------------------------------------------

// ListCarriers returns every carrier ordered by name.
func (s *Store) ListCarriers(ctx context.Context) ([]model.Carrier, error) {
	var carriers []model.Carrier
	if err := s.db.SelectContext(ctx, &carriers, "SELECT * FROM carriers ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	if err := loadServices(ctx, s.db, carriers); err != nil {
		return nil, err
	}
	return carriers, nil
}

// ListCarriersByID returns the carriers whose ids are in ids, ordered by
// name. Unknown ids are ignored.
func (s *Store) ListCarriersByID(ctx context.Context, ids []string) ([]model.Carrier, error) {
	if len(ids) == 0 {
		return []model.Carrier{}, nil
	}
	q, args, err := sqlx.In("SELECT * FROM carriers WHERE id IN (?) ORDER BY name, id", ids)
	if err != nil {
		return nil, fmt.Errorf("build carrier query: %w", err)
	}
	var carriers []model.Carrier
	if err := s.db.SelectContext(ctx, &carriers, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list carriers by id: %w", err)
	}
	if err := loadServices(ctx, s.db, carriers); err != nil {
		return nil, err
	}
	return carriers, nil
}

// ListCarrierIDs returns the ids of all carriers.
func (s *Store) ListCarrierIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM carriers ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list carrier ids: %w", err)
	}
	return ids, nil
}

// ReadableCarrierIDs returns every carrier id for a blanket read grant,
// otherwise the carriers named by the key's read grants.
func (s *Store) ReadableCarrierIDs(ctx context.Context, cred *model.Credential) ([]string, error) {
	return s.grantedCarrierIDs(ctx, cred.ID, cred.CanReadAll, model.GrantRead)
}

// WritableCarrierIDs is ReadableCarrierIDs for write grants.
func (s *Store) WritableCarrierIDs(ctx context.Context, cred *model.Credential) ([]string, error) {
	return s.grantedCarrierIDs(ctx, cred.ID, cred.CanWriteAll, model.GrantWrite)
}

func (s *Store) grantedCarrierIDs(ctx context.Context, keyID string, all bool, mode string) ([]string, error) {
	if all {
		return s.ListCarrierIDs(ctx)
	}
	const q = `SELECT g.carrier_id FROM api_key_grants g
		JOIN carriers c ON c.id = g.carrier_id
		WHERE g.key_id = ? AND g.mode = ?
		ORDER BY g.carrier_id`
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(q), keyID, mode); err != nil {
		return nil, fmt.Errorf("list %s grants: %w", mode, err)
	}
	return ids, nil
}

// GetCarrier returns a carrier with its active services.
func (s *Store) GetCarrier(ctx context.Context, id string) (*model.Carrier, error) {
	return getCarrier(ctx, s.db, "id", id)
}

// GetCarrierByCallsign returns the carrier registered under callsign.
func (s *Store) GetCarrierByCallsign(ctx context.Context, callsign string) (*model.Carrier, error) {
	return getCarrier(ctx, s.db, "callsign", callsign)
}

// getCarrier looks a carrier up by one of its unique columns.
func getCarrier(ctx context.Context, q sqlx.ExtContext, column, value string) (*model.Carrier, error) {
	var c model.Carrier
	query := q.Rebind("SELECT * FROM carriers WHERE " + column + " = ?")
	if err := sqlx.GetContext(ctx, q, &c, query, value); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get carrier by %s: %w", column, err)
	}
	carriers := []model.Carrier{c}
	if err := loadServices(ctx, q, carriers); err != nil {
		return nil, err
	}
	return &carriers[0], nil
}

type carrierServiceRow struct {
	CarrierID   string `db:"carrier_id"`
	ServiceName string `db:"service_name"`
}

// loadServices fills Services on each carrier in place.
func loadServices(ctx context.Context, q sqlx.ExtContext, carriers []model.Carrier) error {
	if len(carriers) == 0 {
		return nil
	}

	var (
		rows  []carrierServiceRow
		query string
		args  []interface{}
		err   error
	)
	if len(carriers) == 1 {
		query = q.Rebind("SELECT carrier_id, service_name FROM carrier_services WHERE carrier_id = ?")
		args = []interface{}{carriers[0].ID}
	} else {
		ids := make([]string, len(carriers))
		for i := range carriers {
			ids[i] = carriers[i].ID
		}
		query, args, err = sqlx.In("SELECT carrier_id, service_name FROM carrier_services WHERE carrier_id IN (?)", ids)
		if err != nil {
			return fmt.Errorf("build carrier services query: %w", err)
		}
		query = q.Rebind(query)
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return fmt.Errorf("load carrier services: %w", err)
	}

	byCarrier := make(map[string][]string, len(carriers))
	for _, r := range rows {
		byCarrier[r.CarrierID] = append(byCarrier[r.CarrierID], r.ServiceName)
	}
	for i := range carriers {
		services := byCarrier[carriers[i].ID]
		if services == nil {
			services = []string{}
		}
		sort.Strings(services)
		carriers[i].Services = services
	}
	return nil
}

// Exists reports whether a row exists in collection whose field equals
// value. Only the lookups used by request validation are allowed.
func (s *Store) Exists(ctx context.Context, collection, field, value string) (bool, error) {
	var query string
	switch collection + "." + field {
	case "carriers.id":
		query = "SELECT COUNT(*) FROM carriers WHERE id = ?"
	case "carriers.callsign":
		query = "SELECT COUNT(*) FROM carriers WHERE callsign = ?"
	case "services.name":
		query = "SELECT COUNT(*) FROM services WHERE name = ?"
	default:
		return false, fmt.Errorf("unsupported existence lookup %s.%s", collection, field)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), value); err != nil {
		return false, fmt.Errorf("check %s.%s: %w", collection, field, err)
	}
	return n > 0, nil
}

// ---------------------------------------------------------------------------
// Carrier writes (transactional)
// ---------------------------------------------------------------------------

// GetCarrier reads a carrier inside the transaction.
func (t *Tx) GetCarrier(ctx context.Context, id string) (*model.Carrier, error) {
	return getCarrier(ctx, t.tx, "id", id)
}

// CallsignTaken reports whether callsign belongs to a carrier other than
// exceptID.
func (t *Tx) CallsignTaken(ctx context.Context, callsign, exceptID string) (bool, error) {
	var n int
	err := t.tx.GetContext(ctx, &n,
		t.tx.Rebind("SELECT COUNT(*) FROM carriers WHERE callsign = ? AND id <> ?"), callsign, exceptID)
	if err != nil {
		return false, fmt.Errorf("check callsign: %w", err)
	}
	return n > 0, nil
}

// CreateCarrier inserts c with version 1 and its services. CreatedAt and
// UpdatedAt are set on c.
func (t *Tx) CreateCarrier(ctx context.Context, c *model.Carrier) error {
	ts := now()
	c.CreatedAt = ts
	c.UpdatedAt = ts
	c.Version = 1

	const q = `INSERT INTO carriers
		(id, name, callsign, current_location, previous_location, docking_access, allow_notorious,
		 owner, owner_external_id, image_url, category, fuel_level, cargo_space, cargo_used,
		 balance, reserve_balance, version, created_at, updated_at)
		VALUES
		(:id, :name, :callsign, :current_location, :previous_location, :docking_access, :allow_notorious,
		 :owner, :owner_external_id, :image_url, :category, :fuel_level, :cargo_space, :cargo_used,
		 :balance, :reserve_balance, :version, :created_at, :updated_at)`

	if _, err := t.tx.NamedExecContext(ctx, q, c); err != nil {
		return fmt.Errorf("insert carrier: %w", err)
	}
	return t.SetCarrierServices(ctx, c.ID, c.Services)
}

// UpdateCarrier writes every mutable column of c, guarded by c.Version. On
// success c.Version is incremented and UpdatedAt refreshed; if the row was
// changed since c was read, ErrConflict is returned.
func (t *Tx) UpdateCarrier(ctx context.Context, c *model.Carrier) error {
	ts := now()
	const q = `UPDATE carriers SET
		name = ?, callsign = ?, current_location = ?, previous_location = ?, docking_access = ?,
		allow_notorious = ?, owner = ?, owner_external_id = ?, image_url = ?, category = ?,
		fuel_level = ?, cargo_space = ?, cargo_used = ?, balance = ?, reserve_balance = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(q),
		c.Name, c.Callsign, c.CurrentLocation, c.PreviousLocation, c.DockingAccess,
		c.AllowNotorious, c.Owner, c.OwnerExternalID, c.ImageURL, c.Category,
		c.FuelLevel, c.CargoSpace, c.CargoUsed, c.Balance, c.ReserveBalance,
		ts, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("update carrier: %w", err)
	}
	if err := expectOne(result, "update carrier"); err != nil {
		if err == ErrNotFound {
			return ErrConflict
		}
		return err
	}
	c.Version++
	c.UpdatedAt = ts
	return nil
}

// SetCarrierServices replaces the carrier's active services.
func (t *Tx) SetCarrierServices(ctx context.Context, carrierID string, services []string) error {
	if _, err := t.tx.ExecContext(ctx,
		t.tx.Rebind("DELETE FROM carrier_services WHERE carrier_id = ?"), carrierID); err != nil {
		return fmt.Errorf("clear carrier services: %w", err)
	}
	insert := t.tx.Rebind("INSERT INTO carrier_services (carrier_id, service_name) VALUES (?, ?)")
	seen := make(map[string]bool, len(services))
	for _, name := range services {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, err := t.tx.ExecContext(ctx, insert, carrierID, name); err != nil {
			return fmt.Errorf("insert carrier service %s: %w", name, err)
		}
	}
	return nil
}

// DeleteCarrier removes a carrier. Its services and any key grants that
// name it are removed by cascade.
func (t *Tx) DeleteCarrier(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind("DELETE FROM carriers WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete carrier: %w", err)
	}
	return expectOne(result, "delete carrier")
}
