package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/model"
)

func TestPublicCarrier(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCarrier(t, "PUB-001")

	rr := env.do(t, "GET", "/public/carrier/"+c.ID, nil)
	assertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	if strings.Contains(body, "balance") {
		t.Errorf("public view exposes balance: %s", body)
	}
	var pub model.PublicCarrier
	decodeJSON(t, rr, &pub)
	if pub.Callsign != "PUB-001" {
		t.Errorf("callsign = %q", pub.Callsign)
	}

	assertError(t, env.do(t, "GET", "/public/carrier/missing", nil), apierr.CarrierNotFound)
}

func TestPublicViewInvalidatedOnChange(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCarrier(t, "PUB-002")

	// Prime the cache.
	rr := env.do(t, "GET", "/public/carrier/"+c.ID, nil)
	assertStatus(t, rr, http.StatusOK)
	if hit := cached(t, env, jsonKey(c.ID)); !hit {
		t.Fatal("public view was not cached")
	}

	rr = env.doAs(t, env.adminKey, "PUT", "/api/v1/carrier/jump", toJSON(t, map[string]string{
		"id": c.ID, "type": "jump", "body": "Colonia",
	}))
	assertStatus(t, rr, http.StatusOK)
	if hit := cached(t, env, jsonKey(c.ID)); hit {
		t.Fatal("public view still cached after a jump")
	}

	rr = env.do(t, "GET", "/public/carrier/"+c.ID, nil)
	var pub model.PublicCarrier
	decodeJSON(t, rr, &pub)
	if pub.CurrentLocation != "Colonia" {
		t.Errorf("current_location = %q, want Colonia", pub.CurrentLocation)
	}
}

func TestPublicList(t *testing.T) {
	env := newTestEnv(t)
	env.seedCarrier(t, "PUB-003")
	env.seedCarrier(t, "PUB-004")

	rr := env.do(t, "GET", "/public/carriers", nil)
	assertStatus(t, rr, http.StatusOK)
	var list []model.PublicCarrier
	decodeJSON(t, rr, &list)
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}

func TestEmbed(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCarrier(t, "EMB-001")

	rr := env.do(t, "GET", "/embed/carrier/"+c.ID, nil)
	assertStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "EMB-001") {
		t.Errorf("card does not mention the callsign: %s", rr.Body.String())
	}
}

func cached(t *testing.T, env *testEnv, key string) bool {
	t.Helper()
	_, hit, err := env.public.cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("cache.Get: %v", err)
	}
	return hit
}
