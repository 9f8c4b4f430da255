package reconcile

import (
	"sort"

	"github.com/xraph/oracle/order"
)

// MatchedPair is one expected line item correlated with one actual line
// item for the same price.
type MatchedPair struct {
	Expected order.ExpectedLineItem
	Actual   order.ActualLineItem
}

// MatchSet is the output of line item correlation: matched pairs plus the
// unmatched remainder of each side.
type MatchSet struct {
	Matched []MatchedPair
	Missing []order.ExpectedLineItem // expected items with no actual counterpart
	Extra   []order.ActualLineItem   // actual items with no expected counterpart
}

// MatchLineItems correlates expected line items with actual line items.
// The correlation key is the price ID; line items for different prices
// are never compatible. Within a price group both sides are sorted
// deterministically and paired positionally, so re-running on identical
// inputs always produces identical pairings. Surplus items on either
// side become Missing or Extra.
//
// An empty side is valid: a pure metered order has no expected items
// until usage lands, so all actual items become Extra rather than an
// error.
func MatchLineItems(expected []order.ExpectedLineItem, actual []order.ActualLineItem) MatchSet {
	expSorted := make([]order.ExpectedLineItem, len(expected))
	copy(expSorted, expected)
	sort.SliceStable(expSorted, func(i, j int) bool {
		a, b := expSorted[i], expSorted[j]
		if !a.Period.Start.Equal(b.Period.Start) {
			return a.Period.Start.Before(b.Period.Start)
		}
		return a.StableID < b.StableID
	})

	// Actual items carry no period fields; their K-sortable item IDs
	// preserve creation order.
	actSorted := make([]order.ActualLineItem, len(actual))
	copy(actSorted, actual)
	sort.SliceStable(actSorted, func(i, j int) bool {
		return actSorted[i].ID.String() < actSorted[j].ID.String()
	})

	expByPrice := make(map[string][]order.ExpectedLineItem)
	for _, li := range expSorted {
		key := li.PriceID.String()
		expByPrice[key] = append(expByPrice[key], li)
	}

	actByPrice := make(map[string][]order.ActualLineItem)
	for _, li := range actSorted {
		key := li.PriceID.String()
		actByPrice[key] = append(actByPrice[key], li)
	}

	keys := make([]string, 0, len(expByPrice)+len(actByPrice))
	for key := range expByPrice {
		keys = append(keys, key)
	}
	for key := range actByPrice {
		if _, seen := expByPrice[key]; !seen {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var set MatchSet
	for _, key := range keys {
		exp := expByPrice[key]
		act := actByPrice[key]

		n := len(exp)
		if len(act) < n {
			n = len(act)
		}
		for i := 0; i < n; i++ {
			set.Matched = append(set.Matched, MatchedPair{Expected: exp[i], Actual: act[i]})
		}
		set.Missing = append(set.Missing, exp[n:]...)
		set.Extra = append(set.Extra, act[n:]...)
	}

	return set
}
