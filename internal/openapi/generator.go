package openapi

import (
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/validate"
)

const apiPrefix = "/api/v1"

// Generate builds the OpenAPI 3.1 document for the carrier API, the public
// views and the system session endpoint.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "carrierd API",
			Description: "Fleet carrier tracking: locations, docking access, services and an audit trail of every change.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "http",
			Scheme:      "bearer",
			Description: "An API key, or an admin session token on /api/v1/system.",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
		{"bearerAuth": {}},
	}

	addComponentSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	for _, ep := range carrier.Endpoints() {
		addEndpoint(doc, ep)
	}
	addPublicPaths(doc)
	addSystemPaths(doc)

	return doc
}

// ─── Carrier API ────────────────────────────────────────────────────────────

func addEndpoint(doc *openapi3.T, ep carrier.Endpoint) {
	path := apiPrefix + ep.Path
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}

	op := &openapi3.Operation{
		Tags:        []string{"carrier"},
		Summary:     ep.Summary,
		OperationID: ep.ID,
		Responses:   endpointResponses(ep),
	}
	if ep.Schema != nil {
		switch ep.Method {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			op.Parameters = queryParameters(ep.Schema)
		default:
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchema(bodySchema(ep.Schema)),
				},
			}
		}
	}

	item.SetOperation(ep.Method, op)
}

// queryParameters turns schema fields into query parameters.
func queryParameters(schema validate.Schema) openapi3.Parameters {
	params := make(openapi3.Parameters, 0, len(schema))
	for _, f := range schema {
		p := openapi3.NewQueryParameter(f.Name).WithSchema(fieldSchema(f))
		p.Required = f.AlwaysRequired()
		params = append(params, &openapi3.ParameterRef{Value: p})
	}
	return params
}

// bodySchema turns schema fields into a JSON object schema.
func bodySchema(schema validate.Schema) *openapi3.Schema {
	s := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: openapi3.Schemas{},
	}
	for _, f := range schema {
		s.Properties[f.Name] = &openapi3.SchemaRef{Value: fieldSchema(f)}
		if f.AlwaysRequired() {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func endpointResponses(ep carrier.Endpoint) *openapi3.Responses {
	switch ep.Response {
	case carrier.RespCarrier:
		if ep.Method == http.MethodPost {
			return newResponses("201", "The created carrier", ref("Carrier"))
		}
		return newResponses("200", "The carrier", ref("Carrier"))
	case carrier.RespCarrierList:
		return newResponses("200", "Readable carriers", listOf(ref("Carrier")))
	case carrier.RespServiceList:
		return newResponses("200", "Service catalogue", listOf(ref("CarrierService")))
	case carrier.RespInfo:
		return newResponses("200", "Choices keyed by attribute", &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: arrayOf(ref("Choice"))},
			},
		})
	case carrier.RespSuccess:
		return newResponses("200", "Change recorded", ref("SuccessResponse"))
	case carrier.RespNoContent:
		return newResponses("204", "Deleted", nil)
	case carrier.RespFreshness:
		responses := newResponses("200", "Modified since the timestamp; X-Carrier-Modified is set", nil)
		notModified := "Not modified since the timestamp"
		responses.Set("304", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &notModified}})
		return responses
	}
	return newResponses("200", "OK", nil)
}

// ─── Public and system paths ────────────────────────────────────────────────

func addPublicPaths(doc *openapi3.T) {
	idParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())}
	noAuth := &openapi3.SecurityRequirements{}

	doc.Paths.Set("/public/carriers", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags: []string{"public"}, Summary: "List carriers (public fields only)", OperationID: "publicListCarriers",
		Security:  noAuth,
		Responses: newResponses("200", "Carriers", arrayOf(ref("PublicCarrier"))),
	}})
	doc.Paths.Set("/public/carrier/{id}", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags: []string{"public"}, Summary: "Get a carrier (public fields only)", OperationID: "publicGetCarrier",
		Security: noAuth, Parameters: openapi3.Parameters{idParam},
		Responses: newResponses("200", "The carrier", ref("PublicCarrier")),
	}})

	html := "Embeddable HTML card"
	embed := openapi3.NewResponses()
	embed.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &html,
		Content:     openapi3.Content{"text/html": &openapi3.MediaType{Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}}},
	}})
	doc.Paths.Set("/embed/carrier/{id}", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags: []string{"public"}, Summary: "Render a carrier card", OperationID: "embedCarrier",
		Security: noAuth, Parameters: openapi3.Parameters{idParam}, Responses: embed,
	}})
}

func addSystemPaths(doc *openapi3.T) {
	login := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"email":    &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"password": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
		},
		Required: []string{"email", "password"},
	}
	session := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"session_token": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"token_type":    &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"expires_in":    &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()},
		},
	}
	doc.Paths.Set(apiPrefix+"/system/admin/session", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags: []string{"system"}, Summary: "Log in as an admin", OperationID: "adminLogin",
		Security: &openapi3.SecurityRequirements{},
		RequestBody: &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true, Content: openapi3.NewContentWithJSONSchema(login),
		}},
		Responses: newResponses("200", "Session token", &openapi3.SchemaRef{Value: session}),
	}})

	limit := &openapi3.ParameterRef{Value: openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema())}
	carrierID := &openapi3.ParameterRef{Value: openapi3.NewQueryParameter("carrier_id").WithSchema(openapi3.NewStringSchema())}
	doc.Paths.Set(apiPrefix+"/system/audit", &openapi3.PathItem{Get: &openapi3.Operation{
		Tags: []string{"system"}, Summary: "List audit entries, newest first", OperationID: "listAudit",
		Parameters: openapi3.Parameters{carrierID, limit},
		Responses:  newResponses("200", "Audit entries", listOf(ref("AuditEntry"))),
	}})
}

// ─── Component schemas ──────────────────────────────────────────────────────

func addComponentSchemas(doc *openapi3.T) {
	str := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()} }
	nullableStr := func() *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema().WithNullable()}
	}
	integer := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()} }
	boolean := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()} }
	dateTime := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()} }
	stringList := func() *openapi3.SchemaRef { return arrayOf(str()) }

	object := func(props openapi3.Schemas) *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: props}}
	}

	public := openapi3.Schemas{
		"id": str(), "name": str(), "callsign": str(), "current_location": str(),
		"docking_access": str(), "allow_notorious": boolean(), "owner": str(),
		"image": nullableStr(), "category": str(), "services": stringList(),
	}
	full := openapi3.Schemas{
		"previous_location": nullableStr(), "owner_discord_id": nullableStr(),
		"fuel": integer(), "cargo_space": integer(), "cargo_used": integer(),
		"balance": integer(), "reserve_balance": integer(), "version": integer(),
		"created_at": dateTime(), "last_modified": dateTime(),
	}
	for k, v := range public {
		full[k] = v
	}

	doc.Components.Schemas["Carrier"] = object(full)
	doc.Components.Schemas["PublicCarrier"] = object(public)
	doc.Components.Schemas["CarrierService"] = object(openapi3.Schemas{
		"name": str(), "label": str(), "odyssey": boolean(),
	})
	doc.Components.Schemas["Choice"] = object(openapi3.Schemas{"value": str(), "label": str()})
	doc.Components.Schemas["SuccessResponse"] = object(openapi3.Schemas{"success": str(), "reference": str()})
	doc.Components.Schemas["AuditEntry"] = object(openapi3.Schemas{
		"id": str(), "key_id": str(), "carrier_id": str(), "timestamp": dateTime(),
		"type": str(), "source": str(), "old_value": object(nil), "new_value": object(nil),
		"external_actor": nullableStr(),
	})
	doc.Components.Schemas["ErrorResponse"] = object(openapi3.Schemas{
		"error": object(openapi3.Schemas{
			"code":       integer(),
			"subcode":    integer(),
			"message":    str(),
			"reference":  str(),
			"request_id": str(),
		}),
	})
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the
// standard error responses. A nil schema means the success has no body.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	success := &openapi3.Response{Description: &successDesc}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	errorRef := ref("ErrorResponse")
	for _, status := range []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusInternalServerError,
	} {
		desc := http.StatusText(status)
		responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: items}}
}

// listOf wraps items in the {"resource": [...], "meta": {...}} envelope.
func listOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": arrayOf(items),
				"meta": {
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"count": {Value: openapi3.NewInt64Schema()},
							"limit": {Value: openapi3.NewInt32Schema()},
						},
					},
				},
			},
		},
	}
}
