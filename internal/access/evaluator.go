// Package access decides what a credential may read or write.
package access

import (
	"context"
	"fmt"
	"sort"

	"github.com/carrierd/carrierd/internal/model"
)

// CarrierRepository answers bulk access queries. Implementations resolve a
// blanket grant to every stored carrier and otherwise return the explicit
// grants that still name an existing carrier.
type CarrierRepository interface {
	ReadableCarrierIDs(ctx context.Context, cred *model.Credential) ([]string, error)
	WritableCarrierIDs(ctx context.Context, cred *model.Credential) ([]string, error)
}

// CanRead reports whether cred may read carrierID. An empty carrierID (no
// carrier resolved) is only readable with a blanket read grant.
func CanRead(cred *model.Credential, carrierID string) bool {
	if cred == nil {
		return false
	}
	if cred.CanReadAll {
		return true
	}
	if carrierID == "" {
		return false
	}
	return cred.CanReadCarrier(carrierID)
}

// CanWrite reports whether cred may modify carrierID.
func CanWrite(cred *model.Credential, carrierID string) bool {
	if cred == nil {
		return false
	}
	if cred.CanWriteAll {
		return true
	}
	if carrierID == "" {
		return false
	}
	return cred.CanWriteCarrier(carrierID)
}

// Evaluator computes bulk access sets through a CarrierRepository.
type Evaluator struct {
	carriers CarrierRepository
}

// NewEvaluator returns an Evaluator backed by carriers.
func NewEvaluator(carriers CarrierRepository) *Evaluator {
	return &Evaluator{carriers: carriers}
}

// ReadableCarriers returns the sorted ids cred may read.
func (e *Evaluator) ReadableCarriers(ctx context.Context, cred *model.Credential) ([]string, error) {
	if cred == nil {
		return []string{}, nil
	}
	ids, err := e.carriers.ReadableCarrierIDs(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("readable carriers: %w", err)
	}
	return sortedUnique(ids), nil
}

// WritableCarriers returns the sorted ids cred may modify.
func (e *Evaluator) WritableCarriers(ctx context.Context, cred *model.Credential) ([]string, error) {
	if cred == nil {
		return []string{}, nil
	}
	ids, err := e.carriers.WritableCarrierIDs(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("writable carriers: %w", err)
	}
	return sortedUnique(ids), nil
}

func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
