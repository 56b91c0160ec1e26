package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCarrierPublicOmitsPrivateFields(t *testing.T) {
	ext := "123456789"
	c := Carrier{
		ID:              "c1",
		Name:            "Distant Worlds",
		Callsign:        "DW2-001",
		CurrentLocation: "Sol",
		OwnerExternalID: &ext,
		Balance:         5_000_000_000,
		UpdatedAt:       time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(c.Public())
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	for _, key := range []string{"owner_discord_id", "balance", "reserve_balance", "cargo_used", "fuel"} {
		if _, ok := m[key]; ok {
			t.Errorf("public projection should not contain %q", key)
		}
	}
	if services, ok := m["services"].([]interface{}); !ok || len(services) != 0 {
		t.Errorf("services = %v, want empty array", m["services"])
	}
	if m["last_modified"] != "2025-01-15T12:00:00Z" {
		t.Errorf("last_modified = %v", m["last_modified"])
	}
}

func TestAuditValueColumnRoundTrip(t *testing.T) {
	in := AuditValue{Kind: ValueScalar, Data: json.RawMessage(`"Sol"`)}
	dv, err := in.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}

	var out AuditValue
	if err := out.Scan([]byte(dv.(string))); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if out.Kind != ValueScalar || string(out.Data) != `"Sol"` {
		t.Errorf("got %+v, want scalar \"Sol\"", out)
	}
}

func TestAuditValueZeroIsNull(t *testing.T) {
	dv, err := AuditValue{}.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	if dv.(string) != `{"kind":"null"}` {
		t.Errorf("got %s", dv)
	}

	var v AuditValue
	if err := v.Scan(nil); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if v.Kind != ValueNull {
		t.Errorf("Kind = %q, want null", v.Kind)
	}
}

func TestChoiceValues(t *testing.T) {
	got := ChoiceValues(DockingAccessChoices)
	want := []string{"all", "none", "friends", "squadron", "squadronfriends"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCredentialGrantLookups(t *testing.T) {
	k := APIKey{ReadCarriers: []string{"a", "b"}, WriteCarriers: []string{"b"}}
	if !k.CanReadCarrier("a") || k.CanWriteCarrier("a") {
		t.Error("carrier a should be read-only")
	}
	if !k.CanWriteCarrier("b") {
		t.Error("carrier b should be writable")
	}
	if k.CanReadCarrier("") {
		t.Error("empty id should never match")
	}
}
