// Package merge reconciles two independently evolved ledger snapshots.
package merge

import "carpool/internal/core"

// Merge combines a and b into a new snapshot without mutating either input.
//
//   - record collections: union by id, the copy from a wins on a shared id
//   - daily participation: union of dates and travellers, legs are OR-ed
//   - scalar settings: taken from b
//
// Call it as Merge(local, remote) or Merge(current, backup): nothing recorded
// on either side is lost, local field values win for records both sides
// know, and configuration follows the second argument.
func Merge(a, b core.Snapshot) core.Snapshot {
	out := core.Snapshot{
		Travellers:         unionByID(a.Travellers, b.Travellers, func(t core.Traveller) string { return t.ID }),
		DailyData:          mergeDaily(a.DailyData, b.DailyData),
		CashPayments:       unionByID(a.CashPayments, b.CashPayments, entryID),
		OtherPending:       unionByID(a.OtherPending, b.OtherPending, entryID),
		CarExpenses:        unionByID(a.CarExpenses, b.CarExpenses, func(e core.CarExpense) string { return e.ID }),
		CoTravellerIncomes: unionByID(a.CoTravellerIncomes, b.CoTravellerIncomes, func(i core.CoTravellerIncome) string { return i.ID }),
	}
	return out.WithSettings(b.Settings())
}

func entryID(e core.Entry) string { return e.ID }

// unionByID keeps the first occurrence of every id, in order of appearance.
func unionByID[T any](a, b []T, id func(T) string) []T {
	out := make([]T, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]T{a, b} {
		for _, item := range list {
			key := id(item)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func mergeDaily(a, b core.DailyData) core.DailyData {
	out := a.Clone()
	for date, cells := range b {
		if _, ok := out[date]; !ok {
			out[date] = make(map[string]core.Trip, len(cells))
		}
		for id, trip := range cells {
			cur := out[date][id]
			out[date][id] = core.Trip{
				Morning: cur.Morning || trip.Morning,
				Evening: cur.Evening || trip.Evening,
			}
		}
	}
	return out
}
