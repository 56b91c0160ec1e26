package access

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/carrierd/carrierd/internal/model"
)

// staticCarriers mimics the store: blanket grants see every carrier,
// explicit grants only those that exist.
type staticCarriers struct {
	ids []string
	err error
}

func (s staticCarriers) ReadableCarrierIDs(_ context.Context, cred *model.Credential) ([]string, error) {
	return s.resolve(cred.CanReadAll, cred.ReadCarriers)
}

func (s staticCarriers) WritableCarrierIDs(_ context.Context, cred *model.Credential) ([]string, error) {
	return s.resolve(cred.CanWriteAll, cred.WriteCarriers)
}

func (s staticCarriers) resolve(all bool, grants []string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if all {
		return s.ids, nil
	}
	var out []string
	for _, g := range grants {
		for _, id := range s.ids {
			if g == id {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func TestCanReadCanWrite(t *testing.T) {
	scoped := &model.Credential{ReadCarriers: []string{"a", "b"}, WriteCarriers: []string{"b"}}
	blanket := &model.Credential{CanReadAll: true, CanWriteAll: true}

	tests := []struct {
		name      string
		cred      *model.Credential
		carrier   string
		wantRead  bool
		wantWrite bool
	}{
		{"scoped read only", scoped, "a", true, false},
		{"scoped read write", scoped, "b", true, true},
		{"scoped outside grants", scoped, "c", false, false},
		{"scoped unresolved carrier", scoped, "", false, false},
		{"blanket", blanket, "z", true, true},
		{"blanket unresolved carrier", blanket, "", true, true},
		{"nil credential", nil, "a", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRead(tt.cred, tt.carrier); got != tt.wantRead {
				t.Errorf("CanRead = %v, want %v", got, tt.wantRead)
			}
			if got := CanWrite(tt.cred, tt.carrier); got != tt.wantWrite {
				t.Errorf("CanWrite = %v, want %v", got, tt.wantWrite)
			}
		})
	}
}

func TestReadableCarriers(t *testing.T) {
	e := NewEvaluator(staticCarriers{ids: []string{"c", "a", "b"}})

	ctx := context.Background()

	all, err := e.ReadableCarriers(ctx, &model.Credential{CanReadAll: true})
	if err != nil {
		t.Fatalf("ReadableCarriers: %v", err)
	}
	if len(all) != 3 || all[0] != "a" || all[2] != "c" {
		t.Errorf("got %v, want [a b c]", all)
	}

	scoped, err := e.ReadableCarriers(ctx, &model.Credential{ReadCarriers: []string{"b", "b", "gone"}})
	if err != nil {
		t.Fatalf("ReadableCarriers: %v", err)
	}
	if len(scoped) != 1 || scoped[0] != "b" {
		t.Errorf("got %v, want [b]", scoped)
	}

	none, err := e.WritableCarriers(ctx, &model.Credential{ReadCarriers: []string{"a"}})
	if err != nil {
		t.Fatalf("WritableCarriers: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %v, want empty", none)
	}
}

func TestBlanketGrantPropagatesListError(t *testing.T) {
	boom := errors.New("boom")
	e := NewEvaluator(staticCarriers{err: boom})
	if _, err := e.WritableCarriers(context.Background(), &model.Credential{CanWriteAll: true}); !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}

func TestAccessProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("explicit grants decide when no blanket grant", prop.ForAll(
		func(grants []string, id string) bool {
			cred := &model.Credential{ReadCarriers: grants, WriteCarriers: grants}
			in := false
			for _, g := range grants {
				if g == id {
					in = true
				}
			}
			want := in && id != ""
			return CanRead(cred, id) == want && CanWrite(cred, id) == want
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.Property("blanket grants allow every carrier", prop.ForAll(
		func(id string) bool {
			cred := &model.Credential{CanReadAll: true, CanWriteAll: true}
			return CanRead(cred, id) && CanWrite(cred, id)
		},
		gen.AlphaString(),
	))

	properties.Property("readable set contains exactly what CanRead allows", prop.ForAll(
		func(all []string, grants []string) bool {
			e := NewEvaluator(staticCarriers{ids: all})
			cred := &model.Credential{ReadCarriers: grants}
			set, err := e.ReadableCarriers(context.Background(), cred)
			if err != nil {
				return false
			}
			for _, id := range set {
				if !CanRead(cred, id) {
					return false
				}
			}
			for i := 1; i < len(set); i++ {
				if set[i-1] >= set[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
