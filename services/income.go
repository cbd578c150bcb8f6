package services

// BaseMineIncome is what a mine claim pays even with zero businesses owned,
// so fresh accounts always have a way to earn.
const BaseMineIncome = 10

// IncomeRate sums quantity × per-unit income over the owned businesses.
// Business ids not in the catalog contribute zero: holdings written before a
// catalog entry was retired must not break the read path.
func IncomeRate(holdings map[string]int64) int64 {
	var total int64
	for businessID, quantity := range holdings {
		if quantity <= 0 {
			continue
		}
		bt, ok := LookupBusiness(businessID)
		if !ok {
			continue
		}
		total += quantity * bt.IncomePerUnit
	}
	return total
}
