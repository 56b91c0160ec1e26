package store

import (
	"context"
	"fmt"

	"github.com/carrierd/carrierd/internal/model"
)

// ListServices returns the service catalogue ordered by name.
func (s *Store) ListServices(ctx context.Context) ([]model.CarrierService, error) {
	var services []model.CarrierService
	if err := s.db.SelectContext(ctx, &services, "SELECT * FROM services ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// GetService returns one catalogue entry by name.
func (s *Store) GetService(ctx context.Context, name string) (*model.CarrierService, error) {
	var svc model.CarrierService
	if err := s.db.GetContext(ctx, &svc, s.db.Rebind("SELECT * FROM services WHERE name = ?"), name); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// CreateService adds an entry to the catalogue. ErrDuplicate is returned
// if the name is already registered.
func (s *Store) CreateService(ctx context.Context, svc *model.CarrierService) error {
	if _, err := s.GetService(ctx, svc.Name); err == nil {
		return ErrDuplicate
	} else if err != ErrNotFound {
		return err
	}

	const q = `INSERT INTO services (name, label, odyssey) VALUES (:name, :label, :odyssey)`
	if _, err := s.db.NamedExecContext(ctx, q, svc); err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// DeleteService removes a catalogue entry. Carriers offering it lose it.
func (s *Store) DeleteService(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM services WHERE name = ?"), name)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return expectOne(result, "delete service")
}

// SeedServices inserts any of services not yet in the catalogue and reports
// how many were added. Existing entries are left untouched.
func (s *Store) SeedServices(ctx context.Context, services []model.CarrierService) (int, error) {
	added := 0
	for i := range services {
		err := s.CreateService(ctx, &services[i])
		switch err {
		case nil:
			added++
		case ErrDuplicate:
		default:
			return added, err
		}
	}
	return added, nil
}
