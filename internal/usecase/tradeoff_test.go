package usecase

import (
	"reflect"
	"testing"

	"github.com/gangu/backend/internal/domain"
)

func rankedFixture(listings ...domain.NormalizedListing) *domain.RankedSet {
	set := &domain.RankedSet{}
	for i, l := range listings {
		set.Listings = append(set.Listings, domain.RankedListing{
			Rank:          i + 1,
			ScoredListing: domain.ScoredListing{NormalizedListing: l},
		})
	}
	return set
}

func tradeoffTypes(tradeoffs []domain.Tradeoff) []domain.TradeoffType {
	out := []domain.TradeoffType{}
	for _, t := range tradeoffs {
		out = append(out, t.Type)
	}
	return out
}

func TestTradeoffDetector_Detect(t *testing.T) {
	d := NewTradeoffDetector()

	t.Run("single listing in stock", func(t *testing.T) {
		got := d.Detect(rankedFixture(listingFixture("zepto", 95, 1, 4.5, 500)))
		if got == nil || len(got) != 0 {
			t.Errorf("Detect() = %v, want empty slice", got)
		}
	})

	t.Run("single low stock listing", func(t *testing.T) {
		only := listingFixture("bigbasket", 350, 24, 3.2, 45)
		only.StockStatus = domain.StockLowStock

		got := d.Detect(rankedFixture(only))
		if !reflect.DeepEqual(tradeoffTypes(got), []domain.TradeoffType{domain.TradeoffAvailabilityRisk}) {
			t.Fatalf("types = %v, want [availability_risk]", tradeoffTypes(got))
		}
		if !reflect.DeepEqual(got[0].ProductsInvolved, []int{1}) {
			t.Errorf("involves %v, want [1]", got[0].ProductsInvolved)
		}
		if got[0].Description != "Top choice #1 has limited stock" {
			t.Errorf("description = %q", got[0].Description)
		}
	})

	t.Run("cheap and slow against fast and pricey", func(t *testing.T) {
		got := d.Detect(rankedFixture(
			listingFixture("zepto", 95, 48, 4.2, 5100),
			listingFixture("amazon", 110, 12, 4.6, 2800),
			listingFixture("blinkit", 120, 10, 4.7, 1200),
		))

		want := []domain.TradeoffType{domain.TradeoffPriceVsSpeed, domain.TradeoffQualityVsPrice}
		if !reflect.DeepEqual(tradeoffTypes(got), want) {
			t.Fatalf("types = %v, want %v", tradeoffTypes(got), want)
		}
		if !reflect.DeepEqual(got[0].ProductsInvolved, []int{1, 3}) {
			t.Errorf("price_vs_speed involves %v, want [1 3]", got[0].ProductsInvolved)
		}
		if !reflect.DeepEqual(got[1].ProductsInvolved, []int{3}) {
			t.Errorf("quality_vs_price involves %v, want [3]", got[1].ProductsInvolved)
		}
	})

	t.Run("fastest is worst rated", func(t *testing.T) {
		got := d.Detect(rankedFixture(
			listingFixture("zepto", 100, 1, 3.9, 500),
			listingFixture("amazon", 100, 24, 4.6, 500),
		))
		want := []domain.TradeoffType{domain.TradeoffSpeedVsQuality}
		if !reflect.DeepEqual(tradeoffTypes(got), want) {
			t.Errorf("types = %v, want %v", tradeoffTypes(got), want)
		}
	})

	t.Run("low stock near the top", func(t *testing.T) {
		first := listingFixture("zepto", 100, 1, 4.5, 500)
		second := listingFixture("amazon", 100, 1, 4.5, 500)
		second.StockStatus = domain.StockLowStock
		third := listingFixture("blinkit", 100, 1, 4.5, 500)
		third.StockStatus = domain.StockLowStock

		got := d.Detect(rankedFixture(first, second, third))
		if !reflect.DeepEqual(tradeoffTypes(got), []domain.TradeoffType{domain.TradeoffAvailabilityRisk}) {
			t.Fatalf("types = %v, want [availability_risk]", tradeoffTypes(got))
		}
		if !reflect.DeepEqual(got[0].ProductsInvolved, []int{2}) {
			t.Errorf("involves %v, want [2]", got[0].ProductsInvolved)
		}
		if got[0].Description != "#2 has limited stock" {
			t.Errorf("description = %q, want %q", got[0].Description, "#2 has limited stock")
		}
	})

	t.Run("both top listings low on stock", func(t *testing.T) {
		first := listingFixture("zepto", 100, 1, 4.5, 500)
		first.StockStatus = domain.StockLowStock
		second := listingFixture("amazon", 100, 1, 4.5, 500)
		second.StockStatus = domain.StockLowStock

		got := d.Detect(rankedFixture(first, second))
		if len(got) != 1 || !reflect.DeepEqual(got[0].ProductsInvolved, []int{1, 2}) {
			t.Fatalf("Detect() = %+v, want one availability_risk over [1 2]", got)
		}
		want := "Top choice #1 has limited stock; #2 has limited stock"
		if got[0].Description != want {
			t.Errorf("description = %q, want %q", got[0].Description, want)
		}
	})

	t.Run("one listing wins everything", func(t *testing.T) {
		got := d.Detect(rankedFixture(
			listingFixture("zepto", 15, 2, 4.8, 50),
			listingFixture("amazon", 18, 3, 4.7, 50),
		))
		if len(got) != 0 {
			t.Errorf("types = %v, want none", tradeoffTypes(got))
		}
	})
}
