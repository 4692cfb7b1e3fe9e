package book

import "sort"

// Merge combines per-venue (bids, asks) pairs into a single merged book.
// Bids are sorted by price descending, asks ascending. The sort is stable,
// so same-price levels keep the order the venues were supplied in.
func Merge(books []Book) Book {
	var merged Book
	for _, b := range books {
		merged.Bids = append(merged.Bids, b.Bids...)
		merged.Asks = append(merged.Asks, b.Asks...)
	}
	sort.SliceStable(merged.Bids, func(i, j int) bool {
		return merged.Bids[i].Price > merged.Bids[j].Price
	})
	sort.SliceStable(merged.Asks, func(i, j int) bool {
		return merged.Asks[i].Price < merged.Asks[j].Price
	})
	return merged
}
