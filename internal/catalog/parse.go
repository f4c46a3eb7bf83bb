package catalog

import (
	"strings"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
)

// ParseSortKey maps a user-supplied sort key; blank means no ordering.
func ParseSortKey(s string) (model.SortKey, error) {
	switch k := model.SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case model.SortNone, model.SortNewest, model.SortOldest, model.SortPriceLow, model.SortPriceHigh:
		return k, nil
	}
	v := errs.NewValidation()
	v.Add("sort", "must be one of newest, oldest, price-low, price-high")
	return "", v
}

// ParseKind maps grader/part, case-insensitively.
func ParseKind(s string) (model.Kind, error) {
	switch k := model.Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case model.KindGrader, model.KindPart:
		return k, nil
	}
	v := errs.NewValidation()
	v.Add("kind", "must be grader or part")
	return "", v
}

// ParseCountry maps a stock country name, case-insensitively, to its canonical spelling.
func ParseCountry(s string) (model.StockCountry, error) {
	for _, c := range []model.StockCountry{model.CountryEU, model.CountryKenya, model.CountryUS} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	v := errs.NewValidation()
	v.Add("stockCountry", "must be one of EU, Kenya, US")
	return "", v
}

// ParseStatus maps for-sale/sold; "available" is accepted as an alias of for-sale.
func ParseStatus(s string) (model.SaleStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(model.StatusForSale), "available":
		return model.StatusForSale, nil
	case string(model.StatusSold):
		return model.StatusSold, nil
	}
	v := errs.NewValidation()
	v.Add("status", "must be for-sale or sold")
	return "", v
}
