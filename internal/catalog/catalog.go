// Package catalog implements the listing filter, search and sort engine.
//
// Every function is pure: inputs are never mutated and results are freshly
// allocated slices, so callers may run them on every keystroke.
package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/and161185/grader-market/internal/model"
)

// Normalize returns f with a well-formed price range and without blank set entries.
func Normalize(f model.FilterState) model.FilterState {
	out := model.FilterState{
		Brands:     compact(f.Brands),
		Categories: compact(f.Categories),
		Countries:  compact(f.Countries),
		Statuses:   compact(f.Statuses),
		Kinds:      compact(f.Kinds),
		Price:      f.Price,
	}
	if out.Price.Min < 0 {
		out.Price.Min = 0
	}
	if out.Price.Max < 0 {
		out.Price.Max = 0
	}
	if out.Price.Max > 0 && out.Price.Min > out.Price.Max {
		out.Price.Min, out.Price.Max = out.Price.Max, out.Price.Min
	}
	return out
}

func compact[T ~string](in []T) []T {
	var out []T
	for _, v := range in {
		if strings.TrimSpace(string(v)) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether l satisfies every active dimension of f.
// f is expected to be normalized.
func Matches(l model.Listing, f model.FilterState) bool {
	if len(f.Brands) > 0 && !containsFold(f.Brands, l.Brand) {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, l.Model) {
		return false
	}
	if len(f.Countries) > 0 && !slices.Contains(f.Countries, l.StockCountry) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status()) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, l.Kind) {
		return false
	}
	if f.Price.Min > 0 && l.Price < f.Price.Min {
		return false
	}
	if f.Price.Max > 0 && l.Price > f.Price.Max {
		return false
	}
	return true
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// MatchesText reports a case-insensitive substring match of text against the
// title, brand, model/category and part number. Blank text matches everything.
func MatchesText(l model.Listing, text string) bool {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return true
	}
	for _, field := range []string{l.Title, l.Brand, l.Model, l.PartNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter returns the listings passing f and text, in their original order.
func Filter(listings []model.Listing, f model.FilterState, text string) []model.Listing {
	f = Normalize(f)
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if Matches(l, f) && MatchesText(l, text) {
			out = append(out, l)
		}
	}
	return out
}

// Sort returns a stably ordered copy of listings. SortNone keeps the order.
func Sort(listings []model.Listing, key model.SortKey) []model.Listing {
	out := slices.Clone(listings)
	var less func(a, b model.Listing) bool
	switch key {
	case model.SortPriceLow:
		less = func(a, b model.Listing) bool { return a.Price < b.Price }
	case model.SortPriceHigh:
		less = func(a, b model.Listing) bool { return a.Price > b.Price }
	case model.SortNewest:
		less = func(a, b model.Listing) bool { return a.ListedAt.After(b.ListedAt) }
	case model.SortOldest:
		less = func(a, b model.Listing) bool { return a.ListedAt.Before(b.ListedAt) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Apply filters then sorts, the full catalog pipeline.
func Apply(listings []model.Listing, q model.Query) []model.Listing {
	return Sort(Filter(listings, q.Filter, q.Text), q.Sort)
}

// Search ranks the listings matching text. Exact part-number hits come first,
// then substring hits; within a rank graders precede parts, and anything still
// tied keeps collection order. limit <= 0 means no cap. Blank text yields nothing.
func Search(listings []model.Listing, text string, limit int) []model.Listing {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil
	}
	type ranked struct {
		l    model.Listing
		rank int
	}
	var hits []ranked
	for _, l := range listings {
		if !MatchesText(l, q) {
			continue
		}
		r := 2
		if l.PartNumber != "" && strings.EqualFold(l.PartNumber, q) {
			r = 0
		}
		if l.Kind != model.KindGrader {
			r++
		}
		hits = append(hits, ranked{l: l, rank: r})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Listing, len(hits))
	for i, h := range hits {
		out[i] = h.l
	}
	return out
}
