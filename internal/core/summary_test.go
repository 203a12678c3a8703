package core

import "testing"

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 {
		t.Fatalf("expected count 0, got %d", s.Count)
	}
	if s.Total.Cents != 0 {
		t.Fatalf("expected total 0, got %d", s.Total.Cents)
	}
	if s.Average.Cents != 0 {
		t.Fatalf("expected average 0, got %d", s.Average.Cents)
	}
	for _, c := range Categories() {
		sum, ok := s.ByCategory[c]
		if !ok {
			t.Fatalf("category %q missing from summary", c)
		}
		if sum.Cents != 0 {
			t.Fatalf("category %q expected 0, got %d", c, sum.Cents)
		}
	}
}

func TestSummarize(t *testing.T) {
	expenses := []Expense{
		{ID: "1", Title: "lunch", Category: FoodAndDining, Amount: Money{Cents: 1000}},
		{ID: "2", Title: "coffee", Category: FoodAndDining, Amount: Money{Cents: 500}},
		{ID: "3", Title: "train", Category: Travel, Amount: Money{Cents: 2000}},
	}
	s := Summarize(expenses)

	if s.Count != 3 {
		t.Fatalf("expected count 3, got %d", s.Count)
	}
	if s.Total.Cents != 3500 {
		t.Fatalf("expected total 3500, got %d", s.Total.Cents)
	}
	if s.Average.Cents != 1167 { // 35.00 / 3 = 11.67 half-up
		t.Fatalf("expected average 1167, got %d", s.Average.Cents)
	}
	if got := s.ByCategory[FoodAndDining].Cents; got != 1500 {
		t.Fatalf("Food & Dining expected 1500, got %d", got)
	}
	if got := s.ByCategory[Travel].Cents; got != 2000 {
		t.Fatalf("Travel expected 2000, got %d", got)
	}
	for _, c := range []Category{Shopping, Entertainment, BillsUtilities, Health, Other} {
		if got := s.ByCategory[c].Cents; got != 0 {
			t.Fatalf("%q expected 0, got %d", c, got)
		}
	}
}

func TestSummarizeUnknownCategoryFoldsIntoOther(t *testing.T) {
	expenses := []Expense{
		{ID: "1", Category: "Mystery", Amount: Money{Cents: 300}},
		{ID: "2", Category: Other, Amount: Money{Cents: 200}},
	}
	s := Summarize(expenses)
	if got := s.ByCategory[Other].Cents; got != 500 {
		t.Fatalf("Other expected 500, got %d", got)
	}
	if s.Total.Cents != 500 {
		t.Fatalf("total expected 500, got %d", s.Total.Cents)
	}
}
