// Package carrier implements the carrier operations exposed by the API:
// location updates, docking permissions, service toggles, record
// maintenance and freshness checks. Every operation validates its input,
// resolves the target carrier, checks the caller's access, applies its rule
// and commits the change together with an audit entry.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carrierd/carrierd/internal/access"
	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/audit"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
	"github.com/carrierd/carrierd/internal/validate"
)

// Input is a decoded request: query parameters or a JSON object.
type Input = map[string]interface{}

// Result is returned by operations whose response is a message.
type Result struct {
	Carrier *model.Carrier
	Entry   *model.AuditEntry
	Message string // catalog message ID
}

// Service runs carrier operations against the store.
type Service struct {
	store     *store.Store
	access    *access.Evaluator
	validator *validate.Validator
	audit     *audit.Log
	logger    *slog.Logger

	mu        sync.RWMutex
	listeners []func(carrierID string)
}

// NewService wires the operations to st.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		access:    access.NewEvaluator(st),
		validator: validate.New(st),
		audit:     audit.NewLog(),
		logger:    logger,
	}
}

// OnChange registers fn to run after every committed change to a carrier.
func (s *Service) OnChange(fn func(carrierID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(carrierID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.listeners {
		fn(carrierID)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// ListCarriers returns the carriers cred may read. A scoped credential with
// no read grants is refused rather than given an empty list.
func (s *Service) ListCarriers(ctx context.Context, cred *model.Credential) ([]model.Carrier, error) {
	ids, err := s.readable(ctx, cred)
	if err != nil {
		return nil, err
	}
	var carriers []model.Carrier
	if cred.CanReadAll {
		carriers, err = s.store.ListCarriers(ctx)
	} else {
		carriers, err = s.store.ListCarriersByID(ctx, ids)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	if carriers == nil {
		carriers = []model.Carrier{}
	}
	return carriers, nil
}

// ListServices returns the service catalogue to any credential with some
// read access.
func (s *Service) ListServices(ctx context.Context, cred *model.Credential) ([]model.CarrierService, error) {
	if _, err := s.readable(ctx, cred); err != nil {
		return nil, err
	}
	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	if services == nil {
		services = []model.CarrierService{}
	}
	return services, nil
}

func (s *Service) readable(ctx context.Context, cred *model.Credential) ([]string, error) {
	if cred == nil {
		return nil, apierr.New(apierr.NoReadAccess)
	}
	ids, err := s.access.ReadableCarriers(ctx, cred)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	if !cred.CanReadAll && len(ids) == 0 {
		return nil, apierr.New(apierr.NoReadAccess)
	}
	return ids, nil
}

// CarrierInfo returns the choices for an enumerated attribute, keyed by the
// attribute's field name.
func (s *Service) CarrierInfo(ctx context.Context, in Input) (map[string][]model.Choice, error) {
	if err := s.validator.Validate(ctx, infoSchema, in); err != nil {
		return nil, err
	}
	switch in[fieldType] {
	case InfoDocking:
		return map[string][]model.Choice{"docking_access": model.DockingAccessChoices}, nil
	default:
		return map[string][]model.Choice{"category": model.CategoryChoices}, nil
	}
}

// GetCarrier returns one carrier by id or, failing that, by callsign.
func (s *Service) GetCarrier(ctx context.Context, cred *model.Credential, in Input) (*model.Carrier, error) {
	if err := s.validator.Validate(ctx, getSchema, in); err != nil {
		return nil, err
	}
	id, _ := in[fieldID].(string)
	callsign, _ := in[fieldCallsign].(string)

	var (
		c   *model.Carrier
		err error
	)
	switch {
	case id != "":
		c, err = s.store.GetCarrier(ctx, id)
	case callsign != "":
		c, err = s.store.GetCarrierByCallsign(ctx, callsign)
	default:
		return nil, apierr.New(apierr.NoCarrierIDOrCallsign)
	}
	if err != nil {
		return nil, lookupError(err)
	}
	if !access.CanRead(cred, c.ID) {
		return nil, apierr.New(apierr.NoReadAccess)
	}
	return c, nil
}

// CheckFreshness reports whether the carrier changed strictly after the
// supplied timestamp. The check is audited.
func (s *Service) CheckFreshness(ctx context.Context, cred *model.Credential, in Input) (bool, error) {
	if err := s.validator.Validate(ctx, freshnessSchema, in); err != nil {
		return false, err
	}
	c, err := s.resolve(ctx, in)
	if err != nil {
		return false, err
	}
	if !access.CanRead(cred, c.ID) {
		return false, apierr.New(apierr.NoReadAccess)
	}

	since := in[fieldTimestamp].(time.Time)
	modified := c.UpdatedAt.After(since)

	entry := s.entry(cred, c.ID, model.AuditFreshnessCheck, in)
	entry.Old = audit.Scalar(since.Format(time.RFC3339Nano))
	entry.New = audit.Scalar(modified)
	if _, err := s.commit(ctx, entry, nil); err != nil {
		return false, err
	}
	return modified, nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// JumpOrCancel records a jump to the body location, or undoes the last jump.
// Only one step of history is kept: a second jump overwrites the previous
// location.
func (s *Service) JumpOrCancel(ctx context.Context, cred *model.Credential, in Input) (*Result, error) {
	if err := s.validator.Validate(ctx, jumpSchema, in); err != nil {
		return nil, err
	}
	c, err := s.resolveWritable(ctx, cred, in)
	if err != nil {
		return nil, err
	}

	from := c.CurrentLocation
	var (
		entry   audit.Entry
		message string
	)
	if in[fieldType] == TypeJump {
		to := in[fieldBody].(string)
		c.PreviousLocation = &from
		c.CurrentLocation = to
		entry = s.entry(cred, c.ID, model.AuditJump, in)
		entry.Old, entry.New = audit.Scalar(from), audit.Scalar(to)
		message = apierr.MsgJumpRecorded
	} else {
		if c.PreviousLocation == nil {
			return nil, apierr.New(apierr.NoPreviousLocation)
		}
		restored := *c.PreviousLocation
		c.CurrentLocation = restored
		c.PreviousLocation = nil
		entry = s.entry(cred, c.ID, model.AuditJumpCancel, in)
		entry.Old, entry.New = audit.Scalar(from), audit.Scalar(restored)
		message = apierr.MsgJumpCancelled
	}

	recorded, err := s.commit(ctx, entry, func(tx *store.Tx) error {
		return tx.UpdateCarrier(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Carrier: c, Entry: recorded, Message: message}, nil
}

// SetPermission changes the docking access level and, when supplied, the
// notorious allowance.
func (s *Service) SetPermission(ctx context.Context, cred *model.Credential, in Input) (*Result, error) {
	if err := s.validator.Validate(ctx, permissionSchema, in); err != nil {
		return nil, err
	}
	c, err := s.resolveWritable(ctx, cred, in)
	if err != nil {
		return nil, err
	}

	oldAccess := c.DockingAccess
	c.DockingAccess = in[fieldAccess].(string)

	entry := s.entry(cred, c.ID, model.AuditPermission, in)
	if notorious, ok := in[fieldNotorious].(bool); ok {
		entry.Old = audit.Fields(map[string]interface{}{"docking_access": oldAccess, "allow_notorious": c.AllowNotorious})
		entry.New = audit.Fields(map[string]interface{}{"docking_access": c.DockingAccess, "allow_notorious": notorious})
		c.AllowNotorious = notorious
	} else {
		entry.Old, entry.New = audit.Scalar(oldAccess), audit.Scalar(c.DockingAccess)
	}

	recorded, err := s.commit(ctx, entry, func(tx *store.Tx) error {
		return tx.UpdateCarrier(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Carrier: c, Entry: recorded, Message: apierr.MsgAccessUpdated}, nil
}

// ToggleService adds (activate, resume) or removes (deactivate, pause) a
// service. The service set has set semantics; a no-op toggle is still
// audited.
func (s *Service) ToggleService(ctx context.Context, cred *model.Credential, in Input) (*Result, error) {
	if err := s.validator.Validate(ctx, serviceSchema, in); err != nil {
		return nil, err
	}
	c, err := s.resolveWritable(ctx, cred, in)
	if err != nil {
		return nil, err
	}

	name := in[fieldService].(string)
	before := append([]string(nil), c.Services...)
	var (
		after   []string
		typ     string
		message string
	)
	switch in[fieldOperation] {
	case OpActivate, OpResume:
		after = before
		if !c.HasService(name) {
			after = append(append([]string(nil), before...), name)
		}
		typ, message = model.AuditServiceActivate, apierr.MsgServiceActivated
	default:
		for _, svc := range before {
			if svc != name {
				after = append(after, svc)
			}
		}
		typ, message = model.AuditServiceDeactivate, apierr.MsgServiceDeactivated
	}
	c.Services = sortedNames(after)

	entry := s.entry(cred, c.ID, typ, in)
	entry.Old, entry.New = audit.List(before), audit.List(c.Services)

	recorded, err := s.commit(ctx, entry, func(tx *store.Tx) error {
		if err := tx.UpdateCarrier(ctx, c); err != nil {
			return err
		}
		return tx.SetCarrierServices(ctx, c.ID, c.Services)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Carrier: c, Entry: recorded, Message: message}, nil
}

// EditCarrier applies a partial update. Only attributes present and
// non-empty in the input are touched; if none are, the carrier is returned
// unchanged and nothing is written.
func (s *Service) EditCarrier(ctx context.Context, cred *model.Credential, in Input) (*model.Carrier, error) {
	if err := s.validator.Validate(ctx, editSchema, in); err != nil {
		return nil, err
	}
	c, err := s.store.GetCarrier(ctx, in[fieldID].(string))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierr.New(apierr.InvalidIDUseCreate)
		}
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	if !access.CanWrite(cred, c.ID) {
		return nil, apierr.New(apierr.CarrierNotAllowed)
	}

	oldValues := make(map[string]interface{})
	newValues := make(map[string]interface{})
	for _, e := range editableFields {
		val, ok := in[e.field.Name]
		if !ok {
			continue
		}
		oldValues[e.field.Name] = e.get(c)
		e.set(c, val)
		newValues[e.field.Name] = e.get(c)
	}
	if len(newValues) == 0 {
		return c, nil
	}

	entry := s.entry(cred, c.ID, model.AuditCarrierUpdate, in)
	entry.Old, entry.New = audit.Fields(oldValues), audit.Fields(newValues)

	_, err = s.commit(ctx, entry, func(tx *store.Tx) error {
		if _, changed := newValues["callsign"]; changed {
			if err := checkCallsign(ctx, tx, c.Callsign, c.ID); err != nil {
				return err
			}
		}
		return tx.UpdateCarrier(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCarrier registers a new carrier. It requires a blanket write grant;
// the id is assigned here and must not be supplied.
func (s *Service) CreateCarrier(ctx context.Context, cred *model.Credential, in Input) (*model.Carrier, error) {
	if id, ok := in[fieldID]; ok && id != nil && id != "" {
		return nil, apierr.New(apierr.IDPresentUseEdit)
	}
	if cred == nil || !cred.CanWriteAll {
		return nil, apierr.New(apierr.CreateNotAllowed)
	}
	if err := s.validator.Validate(ctx, createSchema, in); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	c := &model.Carrier{ID: id.String(), Services: []string{}}
	for _, e := range editableFields {
		if val, ok := in[e.field.Name]; ok && val != nil {
			e.set(c, val)
		}
	}
	if services, ok := in["services"].([]string); ok {
		c.Services = sortedNames(services)
	}

	entry := s.entry(cred, c.ID, model.AuditCarrierCreate, in)
	entry.Old = audit.Null()

	_, err = s.commit(ctx, entry, func(tx *store.Tx) error {
		if err := checkCallsign(ctx, tx, c.Callsign, ""); err != nil {
			return err
		}
		return tx.CreateCarrier(ctx, c)
	}, func(e *audit.Entry) {
		e.New = audit.Record(c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCarrier removes a carrier after recording a snapshot of it.
func (s *Service) DeleteCarrier(ctx context.Context, cred *model.Credential, in Input) (*Result, error) {
	if err := s.validator.Validate(ctx, deleteSchema, in); err != nil {
		return nil, err
	}
	c, err := s.resolveWritable(ctx, cred, in)
	if err != nil {
		return nil, err
	}

	entry := s.entry(cred, c.ID, model.AuditCarrierDelete, in)
	entry.Old, entry.New = audit.Record(c), audit.Null()

	recorded, err := s.commit(ctx, entry, func(tx *store.Tx) error {
		return tx.DeleteCarrier(ctx, c.ID)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Carrier: c, Entry: recorded, Message: apierr.MsgCarrierDeleted}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Service) resolve(ctx context.Context, in Input) (*model.Carrier, error) {
	c, err := s.store.GetCarrier(ctx, in[fieldID].(string))
	if err != nil {
		return nil, lookupError(err)
	}
	return c, nil
}

func (s *Service) resolveWritable(ctx context.Context, cred *model.Credential, in Input) (*model.Carrier, error) {
	c, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite(cred, c.ID) {
		return nil, apierr.New(apierr.CarrierNotAllowed)
	}
	return c, nil
}

func (s *Service) entry(cred *model.Credential, carrierID, typ string, in Input) audit.Entry {
	e := audit.Entry{CarrierID: carrierID, Type: typ}
	if cred != nil {
		e.KeyID = cred.ID
	}
	if src, ok := in[fieldSource].(string); ok {
		e.Source = src
	}
	if actor, ok := in[fieldActor].(string); ok && actor != "" {
		e.ExternalActor = &actor
	}
	return e
}

// commit runs write and records entry in one transaction. finish hooks run
// inside the transaction after write and may fill in entry values that
// depend on it.
func (s *Service) commit(ctx context.Context, entry audit.Entry, write func(tx *store.Tx) error, finish ...func(*audit.Entry)) (*model.AuditEntry, error) {
	var recorded *model.AuditEntry
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if write != nil {
			if err := write(tx); err != nil {
				return err
			}
		}
		for _, fn := range finish {
			fn(&entry)
		}
		var err error
		recorded, err = s.audit.Record(ctx, tx, entry)
		return err
	})
	if err != nil {
		return nil, writeError(err)
	}

	if write != nil {
		s.logger.Info("carrier changed",
			"carrier", entry.CarrierID,
			"type", entry.Type,
			"key", entry.KeyID,
			"source", recorded.Source,
		)
		s.notify(entry.CarrierID)
	}
	return recorded, nil
}

func checkCallsign(ctx context.Context, tx *store.Tx, callsign, exceptID string) error {
	taken, err := tx.CallsignTaken(ctx, callsign, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apierr.New(apierr.CallsignTaken)
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierr.New(apierr.CarrierNotFound)
	}
	return apierr.Wrap(apierr.Internal, err)
}

func writeError(err error) error {
	if _, ok := apierr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrConflict):
		return apierr.Wrap(apierr.ConcurrentModification, err)
	case errors.Is(err, store.ErrNotFound):
		return apierr.Wrap(apierr.CarrierNotFound, err)
	}
	return apierr.Wrap(apierr.Internal, fmt.Errorf("commit carrier change: %w", err))
}

func sortedNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
