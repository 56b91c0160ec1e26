package openapi

import (
	"testing"

	"github.com/carrierd/carrierd/internal/validate"
)

func TestMapFieldType_KnownTypes(t *testing.T) {
	tests := []struct {
		in         validate.Type
		wantType   string
		wantFormat string
	}{
		{validate.String, "string", ""},
		{validate.Int, "integer", "int64"},
		{validate.Bool, "boolean", ""},
		{validate.Timestamp, "string", "date-time"},
		{validate.StringList, "array", ""},
	}
	for _, tt := range tests {
		got := MapFieldType(tt.in)
		if got.Type != tt.wantType || got.Format != tt.wantFormat {
			t.Errorf("MapFieldType(%v) = %+v, want {%s %s}", tt.in, got, tt.wantType, tt.wantFormat)
		}
	}
}

func TestGenerate_ValidOpenAPI(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.2.3")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.1.0")
	}
	if doc.Info == nil {
		t.Fatal("Info is nil")
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q, want %q", doc.Info.Version, "1.2.3")
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers not set correctly")
	}
}

func TestGenerate_SecuritySchemes(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	apiKey, ok := doc.Components.SecuritySchemes["apiKey"]
	if !ok {
		t.Fatal("apiKey security scheme not found")
	}
	if apiKey.Value.Name != "X-API-Key" {
		t.Errorf("apiKey.Name = %q, want %q", apiKey.Value.Name, "X-API-Key")
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Fatal("bearerAuth security scheme not found")
	}
	if len(doc.Security) != 2 {
		t.Errorf("Security requirements count = %d, want 2", len(doc.Security))
	}
}

func TestGenerate_CarrierPaths(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	item := doc.Paths.Find("/api/v1/carrier")
	if item == nil {
		t.Fatal("path /api/v1/carrier not found")
	}
	for name, op := range map[string]interface{}{
		"GET": item.Get, "HEAD": item.Head, "POST": item.Post, "PUT": item.Put, "DELETE": item.Delete,
	} {
		if op == nil {
			t.Errorf("%s /api/v1/carrier missing", name)
		}
	}
	if item.Post.Responses.Value("201") == nil {
		t.Error("createCarrier should document 201")
	}
	if item.Head.Responses.Value("304") == nil {
		t.Error("checkFreshness should document 304")
	}
	if item.Delete.Responses.Value("204") == nil {
		t.Error("deleteCarrier should document 204")
	}

	for _, p := range []string{
		"/api/v1/carriers", "/api/v1/services", "/api/v1/carrierinfo",
		"/api/v1/carrier/jump", "/api/v1/carrier/permission", "/api/v1/carrier/service",
		"/public/carriers", "/public/carrier/{id}", "/embed/carrier/{id}",
		"/api/v1/system/admin/session", "/api/v1/system/audit",
	} {
		if doc.Paths.Find(p) == nil {
			t.Errorf("path %s not found", p)
		}
	}
}

func TestGenerate_JumpRequestBody(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	op := doc.Paths.Find("/api/v1/carrier/jump").Put
	if op.RequestBody == nil {
		t.Fatal("jump has no request body")
	}
	schema := op.RequestBody.Value.Content.Get("application/json").Schema.Value

	required := map[string]bool{}
	for _, name := range schema.Required {
		required[name] = true
	}
	if !required["id"] || !required["type"] {
		t.Errorf("required = %v, want id and type", schema.Required)
	}
	if required["body"] {
		t.Error("body is only required for jumps and must not be listed as always required")
	}

	typ := schema.Properties["type"].Value
	if len(typ.Enum) != 2 {
		t.Errorf("type enum = %v, want 2 values", typ.Enum)
	}
	source := schema.Properties["source"].Value
	if source.Default == nil {
		t.Error("source should document its default")
	}
}

func TestGenerate_QueryParameters(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	head := doc.Paths.Find("/api/v1/carrier").Head
	if head.RequestBody != nil {
		t.Error("HEAD must not take a body")
	}
	names := map[string]bool{}
	for _, p := range head.Parameters {
		if p.Value.In != "query" {
			t.Errorf("parameter %s in %q, want query", p.Value.Name, p.Value.In)
		}
		names[p.Value.Name] = p.Value.Required
	}
	if !names["timestamp"] {
		t.Error("timestamp should be a required query parameter")
	}
	if ts := head.Parameters.GetByInAndName("query", "timestamp"); ts == nil || ts.Schema.Value.Format != "date-time" {
		t.Error("timestamp should have date-time format")
	}
}

func TestGenerate_RangeConstraints(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	schema := doc.Paths.Find("/api/v1/carrier").Put.RequestBody.Value.Content.Get("application/json").Schema.Value
	fuel, ok := schema.Properties["fuel"]
	if !ok {
		t.Fatal("fuel property missing from edit body")
	}
	if fuel.Value.Min == nil || *fuel.Value.Min != 0 {
		t.Errorf("fuel.Min = %v, want 0", fuel.Value.Min)
	}
	if fuel.Value.Max == nil || *fuel.Value.Max != 1000 {
		t.Errorf("fuel.Max = %v, want 1000", fuel.Value.Max)
	}
}

func TestGenerate_ErrorResponseSchema(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	errSchema, ok := doc.Components.Schemas["ErrorResponse"]
	if !ok {
		t.Fatal("ErrorResponse schema not found in components")
	}
	errorProp := errSchema.Value.Properties["error"]
	for _, name := range []string{"code", "subcode", "message", "reference", "request_id"} {
		if _, ok := errorProp.Value.Properties[name]; !ok {
			t.Errorf("%s property not found in error object", name)
		}
	}

	resp := doc.Paths.Find("/api/v1/carrier/jump").Put.Responses
	for _, status := range []string{"400", "401", "403", "404", "409", "500"} {
		if resp.Value(status) == nil {
			t.Errorf("jump response %s missing", status)
		}
	}
}

func TestGenerate_ComponentSchemas(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	public := doc.Components.Schemas["PublicCarrier"].Value
	if _, ok := public.Properties["balance"]; ok {
		t.Error("PublicCarrier must not expose balance")
	}
	full := doc.Components.Schemas["Carrier"].Value
	for _, name := range []string{"balance", "previous_location", "last_modified", "services"} {
		if _, ok := full.Properties[name]; !ok {
			t.Errorf("Carrier.%s missing", name)
		}
	}
}
