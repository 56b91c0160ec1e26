package carrier

import (
	"net/http"

	"github.com/carrierd/carrierd/internal/validate"
)

// Response shapes an endpoint can return.
const (
	RespCarrier     = "carrier"
	RespCarrierList = "carrier_list"
	RespServiceList = "service_list"
	RespInfo        = "info"
	RespSuccess     = "success"
	RespNoContent   = "no_content"
	RespFreshness   = "freshness"
)

// Endpoint describes how one operation is exposed over HTTP. The router,
// the OpenAPI document and the MCP tool list are all built from Endpoints.
type Endpoint struct {
	ID       string
	Method   string
	Path     string
	Summary  string
	Schema   validate.Schema // nil for operations without input
	Response string
}

// Endpoints lists the carrier API in route order.
func Endpoints() []Endpoint {
	return []Endpoint{
		{ID: "listCarriers", Method: http.MethodGet, Path: "/carriers",
			Summary: "List the carriers the key may read", Response: RespCarrierList},
		{ID: "listServices", Method: http.MethodGet, Path: "/services",
			Summary: "List the carrier service catalogue", Response: RespServiceList},
		{ID: "getCarrierInfo", Method: http.MethodGet, Path: "/carrierinfo",
			Summary: "List the choices for docking access or category", Schema: infoSchema, Response: RespInfo},
		{ID: "getCarrier", Method: http.MethodGet, Path: "/carrier",
			Summary: "Get a carrier by id or callsign", Schema: getSchema, Response: RespCarrier},
		{ID: "checkFreshness", Method: http.MethodHead, Path: "/carrier",
			Summary: "Check whether a carrier changed after a timestamp", Schema: freshnessSchema, Response: RespFreshness},
		{ID: "createCarrier", Method: http.MethodPost, Path: "/carrier",
			Summary: "Register a carrier", Schema: createSchema, Response: RespCarrier},
		{ID: "editCarrier", Method: http.MethodPut, Path: "/carrier",
			Summary: "Update carrier attributes", Schema: editSchema, Response: RespCarrier},
		{ID: "deleteCarrier", Method: http.MethodDelete, Path: "/carrier",
			Summary: "Delete a carrier", Schema: deleteSchema, Response: RespNoContent},
		{ID: "jumpOrCancel", Method: http.MethodPut, Path: "/carrier/jump",
			Summary: "Record a jump or cancel the last one", Schema: jumpSchema, Response: RespSuccess},
		{ID: "setPermission", Method: http.MethodPut, Path: "/carrier/permission",
			Summary: "Set docking access", Schema: permissionSchema, Response: RespSuccess},
		{ID: "toggleService", Method: http.MethodPut, Path: "/carrier/service",
			Summary: "Activate or deactivate a service", Schema: serviceSchema, Response: RespSuccess},
	}
}
