package model

// CarrierService is an entry in the service catalogue (refuel, shipyard,
// bartender, ...). Carriers reference services by Name.
type CarrierService struct {
	Name    string `json:"name" db:"name"`
	Label   string `json:"label" db:"label"`
	Odyssey bool   `json:"odyssey" db:"odyssey"`
}

// DefaultServices is the standard catalogue installed by `carrierd service seed`
// and on first start.
var DefaultServices = []CarrierService{
	{Name: "Bartender", Label: "Bartender", Odyssey: true},
	{Name: "PioneerSupplies", Label: "Pioneer Supplies", Odyssey: true},
	{Name: "VistaGenomics", Label: "Vista Genomics", Odyssey: true},
	{Name: "Outfitting", Label: "Outfitting"},
	{Name: "Shipyard", Label: "Shipyard"},
	{Name: "Exploration", Label: "Universal Cartographics"},
	{Name: "VoucherRedemption", Label: "Redemption Office"},
	{Name: "Commodities", Label: "Commodity Market"},
	{Name: "Rearm", Label: "Rearm"},
	{Name: "Refuel", Label: "Refuel"},
	{Name: "Repair", Label: "Repair"},
	{Name: "BlackMarket", Label: "Secure Warehouse"},
}
