package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carrierd/carrierd/internal/model"
)

func TestRenderCarrier(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCarrier(&buf, model.PublicCarrier{
		ID:              "c1",
		Name:            "Ruehrstaat <One>",
		Callsign:        "RST-001",
		CurrentLocation: "Sol",
		DockingAccess:   model.DockingSquadron,
		Category:        model.CategoryFlagship,
		Services:        []string{"VoucherRedemption"},
	})
	if err != nil {
		t.Fatalf("RenderCarrier: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"RST-001", "Ruehrstaat &lt;One&gt;", "Voucher Redemption", `data-carrier-id="c1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<img") {
		t.Error("expected no image element without an image url")
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"Refuel":            "Refuel",
		"VoucherRedemption": "Voucher Redemption",
		"":                  "",
	}
	for in, want := range tests {
		if got := label(in); got != want {
			t.Errorf("label(%q) = %q, want %q", in, got, want)
		}
	}
}
