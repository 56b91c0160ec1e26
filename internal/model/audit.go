package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Audit entry types. The set is closed; every mutating carrier operation
// records exactly one of these.
const (
	AuditJump              = "jump"
	AuditJumpCancel        = "jumpcancel"
	AuditPermission        = "permission"
	AuditServiceActivate   = "service-activate"
	AuditServiceDeactivate = "service-deactivate"
	AuditCarrierCreate     = "carrier-create"
	AuditCarrierUpdate     = "carrier-update"
	AuditCarrierDelete     = "carrier-delete"
	AuditFreshnessCheck    = "freshness-check"
)

// Request sources reported by clients.
const (
	SourceEDMC    = "edmc"
	SourceDiscord = "discord"
	SourceAdmin   = "admin"
	SourceOther   = "other"
)

// Sources lists the accepted request sources.
var Sources = []string{SourceEDMC, SourceDiscord, SourceAdmin, SourceOther}

// AuditEntry is one append-only record of a state-changing (or otherwise
// audited) operation. KeyID and CarrierID are kept as plain identifiers so
// entries outlive the key or carrier they reference.
type AuditEntry struct {
	ID            string     `json:"id" db:"id"`
	KeyID         string     `json:"key_id" db:"key_id"`
	CarrierID     string     `json:"carrier_id" db:"carrier_id"`
	Timestamp     time.Time  `json:"timestamp" db:"created_at"`
	Type          string     `json:"type" db:"entry_type"`
	Source        string     `json:"source" db:"source"`
	OldValue      AuditValue `json:"old_value" db:"old_value"`
	NewValue      AuditValue `json:"new_value" db:"new_value"`
	ExternalActor *string    `json:"external_actor,omitempty" db:"external_actor"`
}

// AuditValue kinds.
const (
	ValueNull   = "null"
	ValueScalar = "scalar"
	ValueList   = "list"
	ValueFields = "fields"
	ValueRecord = "record"
)

// AuditValue is a tagged JSON blob describing one side of a change.
type AuditValue struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"value,omitempty"`
}

// String renders the raw value for display, with "-" for null.
func (v AuditValue) String() string {
	if v.Kind == "" || v.Kind == ValueNull || len(v.Data) == 0 {
		return "-"
	}
	return string(v.Data)
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	CarrierID string
	KeyID     string
	Type      string
	Limit     int
}

// Value implements driver.Valuer so entries persist as a JSON text column.
func (v AuditValue) Value() (driver.Value, error) {
	if v.Kind == "" {
		v.Kind = ValueNull
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *AuditValue) Scan(src interface{}) error {
	var b []byte
	switch t := src.(type) {
	case nil:
		*v = AuditValue{Kind: ValueNull}
		return nil
	case []byte:
		b = t
	case string:
		b = []byte(t)
	default:
		return fmt.Errorf("audit value: unsupported column type %T", src)
	}
	var out AuditValue
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("audit value: %w", err)
	}
	*v = out
	return nil
}
