package search

import (
	"slices"

	"github.com/aks-o/voxlink-sub005/provider"
)

// Score weights.
const (
	featureScore  = 10.0
	areaCodeScore = 5.0
	costScoreMax  = 100.0
)

// costScore falls from costScoreMax toward zero as the total cost rises.
func costScore(totalCost int64) float64 {
	if totalCost < 0 {
		totalCost = 0
	}
	return costScoreMax / (1 + float64(totalCost)/100)
}

func score(n provider.AvailableNumber, p *Preferences) float64 {
	var s float64
	for _, f := range p.Features {
		if n.HasFeature(f) {
			s += featureScore
		}
	}
	if slices.Contains(p.AreaCodes, n.AreaCode) {
		s += areaCodeScore
	}
	if p.SortBy == SortCost {
		s += costScore(n.TotalCost())
	}
	return s
}

// rank orders numbers by descending preference score. Ties keep the order
// the provider returned. Without preferences the input is returned as is.
func rank(numbers []provider.AvailableNumber, p *Preferences) []provider.AvailableNumber {
	if p == nil || len(numbers) < 2 {
		return numbers
	}

	type scored struct {
		n     provider.AvailableNumber
		score float64
	}
	items := make([]scored, len(numbers))
	for i, n := range numbers {
		items[i] = scored{n: n, score: score(n, p)}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	out := make([]provider.AvailableNumber, len(items))
	for i, it := range items {
		out[i] = it.n
	}
	return out
}

// filter applies the hard constraints and truncates to the limit.
func filter(numbers []provider.AvailableNumber, n normalized) []provider.AvailableNumber {
	out := make([]provider.AvailableNumber, 0, min(len(numbers), n.Limit))
	for _, num := range numbers {
		if len(out) == n.Limit {
			break
		}
		if n.MaxMonthlyRate != nil && num.MonthlyRate > *n.MaxMonthlyRate {
			continue
		}
		if n.MaxSetupFee != nil && num.SetupFee > *n.MaxSetupFee {
			continue
		}
		if !hasAll(num, n.Features) {
			continue
		}
		if n.pattern != nil && !n.pattern.MatchString(num.PhoneNumber) {
			continue
		}
		out = append(out, num)
	}
	return out
}

func hasAll(n provider.AvailableNumber, features []provider.Feature) bool {
	for _, f := range features {
		if !n.HasFeature(f) {
			return false
		}
	}
	return true
}
