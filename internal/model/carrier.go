package model

import "time"

// Carrier is a fleet carrier tracked by the service. Location fields hold
// free-form system names; PreviousLocation is the single step of jump history
// used to cancel the last jump.
type Carrier struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Callsign         string    `json:"callsign" db:"callsign"`
	CurrentLocation  string    `json:"current_location" db:"current_location"`
	PreviousLocation *string   `json:"previous_location" db:"previous_location"`
	DockingAccess    string    `json:"docking_access" db:"docking_access"`
	AllowNotorious   bool      `json:"allow_notorious" db:"allow_notorious"`
	Owner            string    `json:"owner" db:"owner"`
	OwnerExternalID  *string   `json:"owner_discord_id,omitempty" db:"owner_external_id"`
	ImageURL         *string   `json:"image,omitempty" db:"image_url"`
	Category         string    `json:"category" db:"category"`
	FuelLevel        int       `json:"fuel" db:"fuel_level"`
	CargoSpace       int       `json:"cargo_space" db:"cargo_space"`
	CargoUsed        int       `json:"cargo_used" db:"cargo_used"`
	Balance          int64     `json:"balance" db:"balance"`
	ReserveBalance   int64     `json:"reserve_balance" db:"reserve_balance"`
	Services         []string  `json:"services" db:"-"`
	Version          int64     `json:"version" db:"version"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"last_modified" db:"updated_at"`
}

// PublicCarrier is the projection served without authentication by the
// embeddable view. Owner identifiers and finances are left out.
type PublicCarrier struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Callsign        string    `json:"callsign"`
	CurrentLocation string    `json:"current_location"`
	DockingAccess   string    `json:"docking_access"`
	AllowNotorious  bool      `json:"allow_notorious"`
	Owner           string    `json:"owner"`
	ImageURL        *string   `json:"image,omitempty"`
	Category        string    `json:"category"`
	Services        []string  `json:"services"`
	LastModified    time.Time `json:"last_modified"`
}

// Public returns the unauthenticated projection of c.
func (c *Carrier) Public() PublicCarrier {
	services := c.Services
	if services == nil {
		services = []string{}
	}
	return PublicCarrier{
		ID:              c.ID,
		Name:            c.Name,
		Callsign:        c.Callsign,
		CurrentLocation: c.CurrentLocation,
		DockingAccess:   c.DockingAccess,
		AllowNotorious:  c.AllowNotorious,
		Owner:           c.Owner,
		ImageURL:        c.ImageURL,
		Category:        c.Category,
		Services:        services,
		LastModified:    c.UpdatedAt,
	}
}

// HasService reports whether the named service is active on the carrier.
func (c *Carrier) HasService(name string) bool {
	for _, s := range c.Services {
		if s == name {
			return true
		}
	}
	return false
}

// Docking access levels.
const (
	DockingAll             = "all"
	DockingNone            = "none"
	DockingFriends         = "friends"
	DockingSquadron        = "squadron"
	DockingSquadronFriends = "squadronfriends"
)

// Carrier categories.
const (
	CategoryFlagship      = "flagship"
	CategoryFreighter     = "freighter"
	CategorySupportVessel = "supportvessel"
	CategoryOther         = "other"
)

// Choice is a value/label pair from one of the enumerated carrier attributes.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DockingAccessChoices lists the docking access levels in display order.
var DockingAccessChoices = []Choice{
	{Value: DockingAll, Label: "All"},
	{Value: DockingNone, Label: "None"},
	{Value: DockingFriends, Label: "Friends"},
	{Value: DockingSquadron, Label: "Squadron"},
	{Value: DockingSquadronFriends, Label: "Squadron & Friends"},
}

// CategoryChoices lists the carrier categories in display order.
var CategoryChoices = []Choice{
	{Value: CategoryFlagship, Label: "Flagship"},
	{Value: CategoryFreighter, Label: "Freighter"},
	{Value: CategorySupportVessel, Label: "Support Vessel"},
	{Value: CategoryOther, Label: "Other"},
}

// ChoiceValues returns just the values of choices, preserving order.
func ChoiceValues(choices []Choice) []string {
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = c.Value
	}
	return out
}

// Limits on the numeric carrier attributes.
const (
	MaxFuelLevel  = 1000
	MaxCargoSpace = 25000
)
