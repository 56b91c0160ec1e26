package carrier

import (
	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/model"
	v "github.com/carrierd/carrierd/internal/validate"
)

// Request field names.
const (
	fieldID        = "id"
	fieldCallsign  = "callsign"
	fieldType      = "type"
	fieldBody      = "body"
	fieldAccess    = "access"
	fieldNotorious = "notorious"
	fieldOperation = "operation"
	fieldService   = "service"
	fieldSource    = "source"
	fieldActor     = "discord_id"
	fieldTimestamp = "timestamp"
)

// Jump request types.
const (
	TypeJump   = "jump"
	TypeCancel = "cancel"
)

// Service toggle operations.
const (
	OpActivate   = "activate"
	OpResume     = "resume"
	OpDeactivate = "deactivate"
	OpPause      = "pause"
)

// Info request types.
const (
	InfoDocking  = "docking"
	InfoCategory = "category"
)

var carrierExists = v.Exists{Collection: "carriers", Field: "id", Code: apierr.CarrierNotFound}

var existingCarrierID = v.Field{
	Name: fieldID, Type: v.String, Presence: v.Required{Code: apierr.NoCarrierID},
	Constraints: []v.Constraint{carrierExists},
}

var sourceField = v.Field{
	Name: fieldSource, Type: v.String, Presence: v.Default{Value: model.SourceOther},
	Constraints: []v.Constraint{v.OneOf{Values: model.Sources, Code: apierr.InvalidSource, FoldCase: true}},
}

var actorField = v.Field{Name: fieldActor, Type: v.String, Presence: v.Optional{}}

var jumpSchema = v.Schema{
	existingCarrierID,
	{Name: fieldType, Type: v.String, Presence: v.Required{Code: apierr.NoType},
		Constraints: []v.Constraint{v.OneOf{Values: []string{TypeJump, TypeCancel}, Code: apierr.InvalidType, FoldCase: true}}},
	{Name: fieldBody, Type: v.String, Presence: v.Required{Code: apierr.NoBody},
		Constraints: []v.Constraint{v.When{Equals: map[string]interface{}{fieldType: TypeJump}}}},
	sourceField,
	actorField,
}

var permissionSchema = v.Schema{
	existingCarrierID,
	{Name: fieldAccess, Type: v.String, Presence: v.Required{Code: apierr.NoAccess},
		Constraints: []v.Constraint{v.OneOf{Values: model.ChoiceValues(model.DockingAccessChoices), Code: apierr.InvalidAccess, FoldCase: true}}},
	{Name: fieldNotorious, Type: v.Bool, Presence: v.Optional{}},
	sourceField,
	actorField,
}

var serviceSchema = v.Schema{
	existingCarrierID,
	{Name: fieldOperation, Type: v.String, Presence: v.Required{Code: apierr.NoOperation},
		Constraints: []v.Constraint{v.OneOf{Values: []string{OpActivate, OpResume, OpDeactivate, OpPause}, Code: apierr.InvalidOperation, FoldCase: true}}},
	{Name: fieldService, Type: v.String, Presence: v.Required{Code: apierr.NoService},
		Constraints: []v.Constraint{v.Exists{Collection: "services", Field: "name", Code: apierr.ServiceNotFound}}},
	sourceField,
	actorField,
}

var getSchema = v.Schema{
	{Name: fieldID, Type: v.String, Presence: v.Optional{}},
	{Name: fieldCallsign, Type: v.String, Presence: v.Optional{}},
}

var infoSchema = v.Schema{
	{Name: fieldType, Type: v.String, Presence: v.Required{Code: apierr.NoType},
		Constraints: []v.Constraint{v.OneOf{Values: []string{InfoDocking, InfoCategory}, Code: apierr.InvalidType, FoldCase: true}}},
}

var deleteSchema = v.Schema{
	existingCarrierID,
	sourceField,
	actorField,
}

var freshnessSchema = v.Schema{
	existingCarrierID,
	{Name: fieldTimestamp, Type: v.Timestamp, Presence: v.Required{Code: apierr.NoTimestamp}, Invalid: apierr.InvalidTimestamp},
	{Name: fieldSource, Type: v.String, Presence: v.Required{Code: apierr.NoSource},
		Constraints: []v.Constraint{v.OneOf{Values: model.Sources, Code: apierr.InvalidSource, FoldCase: true}}},
	actorField,
}

// editable describes one carrier attribute that edit and create accept.
type editable struct {
	field v.Field
	get   func(c *model.Carrier) interface{}
	set   func(c *model.Carrier, val interface{})
}

func strPtr(s string) *string { return &s }

func derefOrNil(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func optionalString(name string) v.Field {
	return v.Field{Name: name, Type: v.String, Presence: v.Optional{}}
}

func boundedInt(name string, max int64) v.Field {
	return v.Field{Name: name, Type: v.Int, Presence: v.Optional{},
		Constraints: []v.Constraint{v.InRange{Min: 0, Max: max, Code: apierr.OutOfRange}}}
}

func unboundedInt(name string) v.Field {
	return v.Field{Name: name, Type: v.Int, Presence: v.Optional{}}
}

// editableFields lists the attributes in the order they are validated and
// applied.
var editableFields = []editable{
	{optionalString("name"),
		func(c *model.Carrier) interface{} { return c.Name },
		func(c *model.Carrier, val interface{}) { c.Name = val.(string) }},
	{optionalString("callsign"),
		func(c *model.Carrier) interface{} { return c.Callsign },
		func(c *model.Carrier, val interface{}) { c.Callsign = val.(string) }},
	{optionalString("current_location"),
		func(c *model.Carrier) interface{} { return c.CurrentLocation },
		func(c *model.Carrier, val interface{}) { c.CurrentLocation = val.(string) }},
	{optionalString("previous_location"),
		func(c *model.Carrier) interface{} { return derefOrNil(c.PreviousLocation) },
		func(c *model.Carrier, val interface{}) { c.PreviousLocation = strPtr(val.(string)) }},
	{v.Field{Name: "docking_access", Type: v.String, Presence: v.Optional{},
		Constraints: []v.Constraint{v.OneOf{Values: model.ChoiceValues(model.DockingAccessChoices), Code: apierr.InvalidAccess, FoldCase: true}}},
		func(c *model.Carrier) interface{} { return c.DockingAccess },
		func(c *model.Carrier, val interface{}) { c.DockingAccess = val.(string) }},
	{v.Field{Name: "allow_notorious", Type: v.Bool, Presence: v.Optional{}},
		func(c *model.Carrier) interface{} { return c.AllowNotorious },
		func(c *model.Carrier, val interface{}) { c.AllowNotorious = val.(bool) }},
	{optionalString("owner"),
		func(c *model.Carrier) interface{} { return c.Owner },
		func(c *model.Carrier, val interface{}) { c.Owner = val.(string) }},
	{optionalString("owner_discord_id"),
		func(c *model.Carrier) interface{} { return derefOrNil(c.OwnerExternalID) },
		func(c *model.Carrier, val interface{}) { c.OwnerExternalID = strPtr(val.(string)) }},
	{optionalString("image"),
		func(c *model.Carrier) interface{} { return derefOrNil(c.ImageURL) },
		func(c *model.Carrier, val interface{}) { c.ImageURL = strPtr(val.(string)) }},
	{v.Field{Name: "category", Type: v.String, Presence: v.Optional{},
		Constraints: []v.Constraint{v.OneOf{Values: model.ChoiceValues(model.CategoryChoices), Code: apierr.InvalidCategory, FoldCase: true}}},
		func(c *model.Carrier) interface{} { return c.Category },
		func(c *model.Carrier, val interface{}) { c.Category = val.(string) }},
	{boundedInt("fuel", model.MaxFuelLevel),
		func(c *model.Carrier) interface{} { return int64(c.FuelLevel) },
		func(c *model.Carrier, val interface{}) { c.FuelLevel = int(val.(int64)) }},
	{boundedInt("cargo_space", model.MaxCargoSpace),
		func(c *model.Carrier) interface{} { return int64(c.CargoSpace) },
		func(c *model.Carrier, val interface{}) { c.CargoSpace = int(val.(int64)) }},
	{boundedInt("cargo_used", model.MaxCargoSpace),
		func(c *model.Carrier) interface{} { return int64(c.CargoUsed) },
		func(c *model.Carrier, val interface{}) { c.CargoUsed = int(val.(int64)) }},
	{unboundedInt("balance"),
		func(c *model.Carrier) interface{} { return c.Balance },
		func(c *model.Carrier, val interface{}) { c.Balance = val.(int64) }},
	{unboundedInt("reserve_balance"),
		func(c *model.Carrier) interface{} { return c.ReserveBalance },
		func(c *model.Carrier, val interface{}) { c.ReserveBalance = val.(int64) }},
}

// createRequired are the attributes a new carrier cannot be created without.
var createRequired = map[string]bool{
	"name":             true,
	"callsign":         true,
	"current_location": true,
	"owner":            true,
}

// createDefaults fill attributes left out of a create request.
var createDefaults = map[string]interface{}{
	"docking_access":  model.DockingAll,
	"category":        model.CategoryOther,
	"allow_notorious": false,
	"fuel":            int64(0),
	"cargo_space":     int64(0),
	"cargo_used":      int64(0),
	"balance":         int64(0),
	"reserve_balance": int64(0),
}

var editSchema, createSchema = buildCarrierSchemas()

func buildCarrierSchemas() (v.Schema, v.Schema) {
	edit := v.Schema{{Name: fieldID, Type: v.String, Presence: v.Required{Code: apierr.NoCarrierID}}}
	var create v.Schema
	for _, e := range editableFields {
		edit = append(edit, e.field)

		f := e.field
		if createRequired[f.Name] {
			f.Presence = v.Required{Code: apierr.MissingField}
		} else if def, ok := createDefaults[f.Name]; ok {
			f.Presence = v.Default{Value: def}
		}
		create = append(create, f)
	}
	create = append(create, v.Field{Name: "services", Type: v.StringList, Presence: v.Optional{},
		Constraints: []v.Constraint{v.Exists{Collection: "services", Field: "name", Code: apierr.ServiceNotFound}}})

	edit = append(edit, sourceField, actorField)
	create = append(create, sourceField, actorField)
	return edit, create
}
