package usecase

import (
	"testing"

	"github.com/gangu/backend/internal/domain"
)

func candidates(listings ...domain.NormalizedListing) []Candidate {
	out := make([]Candidate, len(listings))
	for i, l := range listings {
		out[i] = Candidate{NormalizedListing: l}
	}
	return out
}

func TestWeightsFor(t *testing.T) {
	for _, urgency := range []domain.Urgency{
		domain.UrgencyUrgent, domain.UrgencyHigh, domain.UrgencyNormal, domain.UrgencyLow,
	} {
		t.Run(string(urgency), func(t *testing.T) {
			if sum := WeightsFor(urgency).Sum(); !almostEqual(sum, 1) {
				t.Errorf("weights sum = %v, want 1", sum)
			}
		})
	}

	t.Run("unknown falls back to normal", func(t *testing.T) {
		if got := WeightsFor("whenever"); got != WeightsFor(domain.UrgencyNormal) {
			t.Errorf("WeightsFor(whenever) = %+v, want normal weights", got)
		}
	})

	t.Run("urgent favours speed", func(t *testing.T) {
		w := WeightsFor(domain.UrgencyUrgent)
		if w.Speed <= w.Price {
			t.Errorf("urgent speed weight %v should exceed price weight %v", w.Speed, w.Price)
		}
	})
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(false)

	t.Run("empty input", func(t *testing.T) {
		if got := s.Score(nil, nil, domain.UrgencyNormal); len(got) != 0 {
			t.Errorf("Score(nil) returned %d listings", len(got))
		}
	})

	t.Run("relative price and speed", func(t *testing.T) {
		scored := s.Score(candidates(
			listingFixture("zepto", 95, 48, 4.2, 5100),
			listingFixture("amazon", 110, 12, 4.6, 2800),
			listingFixture("blinkit", 120, 10, 4.7, 1200),
		), nil, domain.UrgencyNormal)

		if len(scored) != 3 {
			t.Fatalf("len(scored) = %d, want 3", len(scored))
		}
		if !almostEqual(scored[0].Scores.Price, 100) || !almostEqual(scored[2].Scores.Price, 0) {
			t.Errorf("price scores = %v, %v; want 100, 0", scored[0].Scores.Price, scored[2].Scores.Price)
		}
		if !almostEqual(scored[1].Scores.Price, 40) {
			t.Errorf("middle price score = %v, want 40", scored[1].Scores.Price)
		}
		if !almostEqual(scored[2].Scores.Speed, 100) {
			t.Errorf("fastest speed score = %v, want 100", scored[2].Scores.Speed)
		}
		if want := 100 - 38.0/48*100; !almostEqual(scored[0].Scores.Speed, want) {
			t.Errorf("slowest speed score = %v, want %v", scored[0].Scores.Speed, want)
		}
		if want := 80.0 + 25.0/120; !almostEqual(scored[0].FinalScore, want) {
			t.Errorf("final score = %v, want %v", scored[0].FinalScore, want)
		}
	})

	t.Run("identical prices all score 100", func(t *testing.T) {
		scored := s.Score(candidates(
			listingFixture("zepto", 50, 1, 4.5, 500),
			listingFixture("amazon", 50, 24, 4.5, 500),
		), nil, domain.UrgencyNormal)
		for _, l := range scored {
			if l.Scores.Price != 100 {
				t.Errorf("%s price score = %v, want 100", l.Platform, l.Scores.Price)
			}
		}
	})

	t.Run("warnings and flags never nil", func(t *testing.T) {
		scored := s.Score(candidates(listingFixture("zepto", 50, 1, 4.5, 500)), nil, domain.UrgencyLow)
		if scored[0].Warnings == nil || scored[0].Flags == nil {
			t.Error("expected non-nil warnings and flags")
		}
		if scored[0].Weights != WeightsFor(domain.UrgencyLow) {
			t.Errorf("weights = %+v, want low urgency weights", scored[0].Weights)
		}
	})

	t.Run("scores stay in bounds", func(t *testing.T) {
		wild := listingFixture("amazon", 1e6, 1e4, 5, 1e7)
		scored := s.Score(candidates(listingFixture("zepto", 0.01, 0, 0, 0), wild), nil, domain.UrgencyUrgent)
		for _, l := range scored {
			for name, v := range map[string]float64{
				"price":        l.Scores.Price,
				"speed":        l.Scores.Speed,
				"quality":      l.Scores.Quality,
				"availability": l.Scores.Availability,
				"quantity":     l.Scores.QuantityMatch,
				"final":        l.FinalScore,
			} {
				if v < 0 || v > 100 {
					t.Errorf("%s %s score = %v, out of [0, 100]", l.Platform, name, v)
				}
			}
		}
	})
}

func TestQualityScore(t *testing.T) {
	testCases := []struct {
		name    string
		rating  float64
		reviews int
		want    float64
	}{
		{"well reviewed caps at 100", 4.7, 1200, 100},
		{"one review gets no boost", 4, 1, 80},
		{"zero reviews treated as one", 4, 0, 80},
		{"ten reviews add ten percent", 3, 10, 66},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := qualityScore(tc.rating, tc.reviews); !almostEqual(got, tc.want) {
				t.Errorf("qualityScore(%v, %d) = %v, want %v", tc.rating, tc.reviews, got, tc.want)
			}
		})
	}
}

func TestAvailabilityScore(t *testing.T) {
	if got := availabilityScore(domain.StockInStock); got != 100 {
		t.Errorf("in stock = %v, want 100", got)
	}
	if got := availabilityScore(domain.StockLowStock); got != 70 {
		t.Errorf("low stock = %v, want 70", got)
	}
}

func TestQuantityMatchScore(t *testing.T) {
	requested := &domain.Quantity{Value: 1, Unit: "kg"}

	testCases := []struct {
		name      string
		quantity  domain.Quantity
		requested *domain.Quantity
		want      float64
	}{
		{"no request", domain.Quantity{Value: 0.5, Unit: "kg"}, nil, 100},
		{"exact", domain.Quantity{Value: 1, Unit: "kg"}, requested, 100},
		{"within 20 percent", domain.Quantity{Value: 0.9, Unit: "kg"}, requested, 80},
		{"within 50 percent", domain.Quantity{Value: 1.5, Unit: "kg"}, requested, 60},
		{"far off", domain.Quantity{Value: 2, Unit: "kg"}, requested, 40},
		{"different unit", domain.Quantity{Value: 1, Unit: "l"}, requested, 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := quantityMatchScore(tc.quantity, tc.requested); got != tc.want {
				t.Errorf("quantityMatchScore() = %v, want %v", got, tc.want)
			}
		})
	}
}
