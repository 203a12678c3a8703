package core

// Summary holds the aggregates derived from the cached expense collection.
type Summary struct {
	Count      int
	Total      Money
	Average    Money // mean per record, half-up to the cent; zero when empty
	ByCategory map[Category]Money
}

// Summarize computes aggregates over the given expenses. Every known
// category appears in ByCategory, zero-valued when nothing matches.
// Records carrying a category outside the fixed set fold into Other so
// the per-category sums stay total-preserving.
func Summarize(expenses []Expense) Summary {
	byCategory := make(map[Category]Money, len(Categories()))
	for _, c := range Categories() {
		byCategory[c] = Money{}
	}

	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
		c := e.Category
		if !c.Known() {
			c = Other
		}
		byCategory[c] = Money{Cents: byCategory[c].Cents + e.Amount.Cents}
	}

	s := Summary{
		Count:      len(expenses),
		Total:      Money{Cents: total},
		ByCategory: byCategory,
	}
	if s.Count > 0 {
		s.Average = Money{Cents: (total + int64(s.Count)/2) / int64(s.Count)}
	}
	return s
}
