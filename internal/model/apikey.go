package model

import "time"

// APIKey is a bearer credential. The raw key is never stored; only a SHA-256
// hash and a short prefix for identification are persisted. Per-carrier
// grants live in their own table and are loaded into ReadCarriers and
// WriteCarriers.
type APIKey struct {
	ID          string     `json:"id" db:"id"`
	KeyHash     string     `json:"-" db:"key_hash"`            // SHA-256 hash, never expose
	KeyPrefix   string     `json:"key_prefix" db:"key_prefix"` // First 16 chars for identification
	Label       string     `json:"label" db:"label"`
	CanReadAll  bool       `json:"can_read_all" db:"can_read_all"`
	CanWriteAll bool       `json:"can_write_all" db:"can_write_all"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastUsed    *time.Time `json:"last_used,omitempty" db:"last_used"`

	ReadCarriers  []string `json:"read_carriers" db:"-"`
	WriteCarriers []string `json:"write_carriers" db:"-"`
}

// Grant modes stored in api_key_grants.mode.
const (
	GrantRead  = "read"
	GrantWrite = "write"
)

// Credential is the resolved identity a request acts as. It is an APIKey
// whose grant sets have been loaded.
type Credential = APIKey

// CanReadCarrier reports whether id is in the explicit read grant set.
func (k *APIKey) CanReadCarrier(id string) bool {
	return contains(k.ReadCarriers, id)
}

// CanWriteCarrier reports whether id is in the explicit write grant set.
func (k *APIKey) CanWriteCarrier(id string) bool {
	return contains(k.WriteCarriers, id)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
