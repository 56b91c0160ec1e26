// Package audit records append-only entries describing state changes to
// carriers. Entries are written through the caller's transaction so an
// entry exists if and only if the change it describes was committed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carrierd/carrierd/internal/model"
)

// Writer persists an entry. *store.Tx implements it.
type Writer interface {
	InsertAuditEntry(ctx context.Context, e *model.AuditEntry) error
}

// Entry describes a change to record.
type Entry struct {
	KeyID         string
	CarrierID     string
	Type          string
	Source        string
	Old           model.AuditValue
	New           model.AuditValue
	ExternalActor *string
}

// Log assigns ids and timestamps to entries. Timestamps handed out by one
// Log strictly increase, even when the wall clock does not.
type Log struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewLog returns a Log using the system clock.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Record writes e through w and returns the stored entry.
func (l *Log) Record(ctx context.Context, w Writer, e Entry) (*model.AuditEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("audit entry id: %w", err)
	}
	source := e.Source
	if source == "" {
		source = model.SourceOther
	}

	entry := &model.AuditEntry{
		ID:            id.String(),
		KeyID:         e.KeyID,
		CarrierID:     e.CarrierID,
		Timestamp:     l.timestamp(),
		Type:          e.Type,
		Source:        source,
		OldValue:      orNull(e.Old),
		NewValue:      orNull(e.New),
		ExternalActor: e.ExternalActor,
	}
	if err := w.InsertAuditEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (l *Log) timestamp() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now().UTC().Truncate(time.Microsecond)
	if !t.After(l.last) {
		t = l.last.Add(time.Microsecond)
	}
	l.last = t
	return t
}

func orNull(v model.AuditValue) model.AuditValue {
	if v.Kind == "" {
		return Null()
	}
	return v
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Null is the value for "nothing": the old side of a create or the new side
// of a delete.
func Null() model.AuditValue {
	return model.AuditValue{Kind: model.ValueNull}
}

// Scalar wraps a single string, number or boolean.
func Scalar(v interface{}) model.AuditValue {
	return encode(model.ValueScalar, v)
}

// List wraps a list of names, such as a carrier's services.
func List(items []string) model.AuditValue {
	if items == nil {
		items = []string{}
	}
	return encode(model.ValueList, items)
}

// Fields wraps a partial record: only the attributes that changed.
func Fields(m map[string]interface{}) model.AuditValue {
	return encode(model.ValueFields, m)
}

// Record wraps a full snapshot of an entity.
func Record(v interface{}) model.AuditValue {
	return encode(model.ValueRecord, v)
}

func encode(kind string, v interface{}) model.AuditValue {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return model.AuditValue{Kind: kind, Data: b}
}

// Decode unmarshals the payload of v into dst.
func Decode(v model.AuditValue, dst interface{}) error {
	if v.Kind == model.ValueNull || len(v.Data) == 0 {
		return nil
	}
	return json.Unmarshal(v.Data, dst)
}
