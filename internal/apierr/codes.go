package apierr

func badRequest(n int, id string) Code {
	return Code{Kind: KindBadRequest, Number: n, MessageID: id}
}

func unauthorized(n int, id string) Code {
	return Code{Kind: KindUnauthorized, Number: n, MessageID: id}
}

func forbidden(n int, id string) Code {
	return Code{Kind: KindForbidden, Number: n, MessageID: id}
}

func notFound(n int, id string) Code {
	return Code{Kind: KindNotFound, Number: n, MessageID: id}
}

func conflict(n int, id string) Code {
	return Code{Kind: KindConflict, Number: n, MessageID: id}
}

// 400
var (
	NoCarrierID           = badRequest(1, "no_carrier_id")
	NoCarrierIDOrCallsign = badRequest(2, "no_carrier_id_or_callsign")
	InvalidIDUseCreate    = badRequest(3, "invalid_carrier_id_use_create")
	NoType                = badRequest(4, "no_type")
	InvalidType           = badRequest(5, "invalid_type")
	NoBody                = badRequest(6, "no_body")
	NoAccess              = badRequest(7, "no_access")
	NoPreviousLocation    = badRequest(8, "no_previous_location")
	NoOperation           = badRequest(9, "no_operation")
	NoService             = badRequest(10, "no_service")
	IDPresentUseEdit      = badRequest(11, "carrier_id_use_edit")
	InvalidAccess         = badRequest(12, "invalid_access")
	InvalidOperation      = badRequest(13, "invalid_operation")
	InvalidTimestamp      = badRequest(14, "invalid_timestamp")
	NoTimestamp           = badRequest(15, "no_timestamp")
	InvalidValue          = badRequest(16, "invalid_value")
	NotApplicable         = badRequest(17, "not_applicable")
	InvalidSource         = badRequest(18, "invalid_source")
	InvalidCategory       = badRequest(19, "invalid_category")
	MissingField          = badRequest(20, "missing_field")
	InvalidBody           = badRequest(21, "invalid_body")
	NoSource              = badRequest(22, "no_source")
	OutOfRange            = badRequest(23, "out_of_range")
)

// 401
var (
	CarrierNotAllowed = unauthorized(1, "carrier_not_allowed")
	NoReadAccess      = unauthorized(2, "no_read_access")
	CreateNotAllowed  = unauthorized(3, "create_not_allowed")
)

// 403
var (
	NoCredentials      = forbidden(1, "no_credentials")
	InvalidCredentials = forbidden(2, "invalid_credentials")
	AdminRequired      = forbidden(3, "admin_required")
)

// 404
var (
	CarrierNotFound = notFound(1, "carrier_not_found")
	ServiceNotFound = notFound(2, "service_not_found")
	KeyNotFound     = notFound(3, "key_not_found")
)

// 409
var (
	ConcurrentModification = conflict(1, "concurrent_modification")
	CallsignTaken          = conflict(2, "callsign_taken")
	ServiceExists          = conflict(3, "service_exists")
	AdminExists            = conflict(4, "admin_exists")
)

// 500
var Internal = Code{Kind: KindInternal, Number: 1, MessageID: "internal"}
