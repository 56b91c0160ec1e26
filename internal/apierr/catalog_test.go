package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog("https://docs.example.com/")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestCatalogMessage(t *testing.T) {
	c := newTestCatalog(t)

	if got := c.Message(NoCarrierID); got != "No carrier id provided" {
		t.Errorf("got %q", got)
	}
	if got := c.Message(CarrierNotFound, "fr-FR"); got != "Invalid carrier id provided" {
		t.Errorf("unsupported language should fall back to English, got %q", got)
	}
	if got := c.Text(MsgJumpRecorded); got != "Carrier jump recorded" {
		t.Errorf("got %q", got)
	}
}

func TestEveryCodeHasAMessage(t *testing.T) {
	c := newTestCatalog(t)
	codes := []Code{
		NoCarrierID, NoCarrierIDOrCallsign, InvalidIDUseCreate, NoType, InvalidType, NoBody,
		NoAccess, NoPreviousLocation, NoOperation, NoService, IDPresentUseEdit, InvalidAccess,
		InvalidOperation, InvalidTimestamp, NoTimestamp, InvalidValue, NotApplicable,
		InvalidSource, InvalidCategory, MissingField, InvalidBody, NoSource, OutOfRange,
		CarrierNotAllowed, NoReadAccess, CreateNotAllowed,
		NoCredentials, InvalidCredentials, AdminRequired,
		CarrierNotFound, ServiceNotFound, KeyNotFound,
		ConcurrentModification, CallsignTaken, Internal,
	}
	seen := make(map[string]bool)
	for _, code := range codes {
		key := fmt.Sprintf("%d/%d", code.Kind.Status(), code.Number)
		if seen[key] {
			t.Errorf("duplicate code %s", key)
		}
		seen[key] = true
		if msg := c.Message(code); msg == code.MessageID {
			t.Errorf("code %s (%s) has no catalog entry", key, code.MessageID)
		}
	}
}

func TestReference(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		code Code
		want string
	}{
		{NoCarrierID, "https://docs.example.com/#/api/errors/?id=no-carrier-id-provided"},
		{InvalidIDUseCreate, "https://docs.example.com/#/api/errors/?id=invalid-carrier-id-provided-to-create-a-carrier-please-use-post-request"},
		{Code{Kind: KindBadRequest, Number: 99, MessageID: "unknown"}, "https://docs.example.com/#/api/errors/?id=_400-bad-request"},
		{Code{Kind: KindNotFound, Number: 99, MessageID: "unknown"}, "https://docs.example.com/#/api/errors/?id=_404-not-found"},
	}
	for _, tt := range tests {
		if got := c.Reference(tt.code); got != tt.want {
			t.Errorf("Reference(%s) = %q, want %q", tt.code.MessageID, got, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"No carrier id provided":  "no-carrier-id-provided",
		"  Squadron & Friends!  ": "squadron-friends",
		"Internal Server Error":   "internal-server-error",
		"":                        "",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("jump: %w", New(CarrierNotFound))

	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %v, want KindNotFound", KindOf(err))
	}
	if !Is(err, CarrierNotFound) {
		t.Error("Is should match through wrapping")
	}
	if Is(err, NoCarrierID) {
		t.Error("Is should not match a different code")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors should be internal")
	}
	if KindConflict.Status() != http.StatusConflict || KindUnauthorized.Status() != http.StatusUnauthorized {
		t.Error("unexpected status mapping")
	}

	cause := errors.New("db down")
	wrapped := Wrap(Internal, cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Wrap should preserve the cause")
	}
}
