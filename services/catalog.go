package services

// BusinessType describes one purchasable business.
type BusinessType struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UnitCost      int64  `json:"unit_cost"`
	IncomePerUnit int64  `json:"income_per_unit"`
}

// BusinessCatalog is the closed set of businesses the purchase path accepts.
// Unknown ids are rejected at the write boundary; only the read-side income
// calculator treats them as zero (forward compatibility with schema additions).
var BusinessCatalog = []BusinessType{
	{ID: "KIOSK", Name: "Street Kiosk", UnitCost: 250, IncomePerUnit: 25},
	{ID: "MINER", Name: "Mining Rig", UnitCost: 500, IncomePerUnit: 60},
	{ID: "DAPP", Name: "DApp Studio", UnitCost: 1000, IncomePerUnit: 150},
	{ID: "EXCHANGE", Name: "Coin Exchange", UnitCost: 5000, IncomePerUnit: 900},
}

// MaxPurchaseQuantity caps a single purchase so quantity × unitCost can never
// overflow int64.
const MaxPurchaseQuantity = 1_000_000

func LookupBusiness(id string) (BusinessType, bool) {
	for _, bt := range BusinessCatalog {
		if bt.ID == id {
			return bt, true
		}
	}
	return BusinessType{}, false
}
