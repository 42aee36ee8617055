package listing

import (
	"strings"

	"kloset/internal/domain/shared/dates"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByNewest    CatalogSort = "newest"
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByViews     CatalogSort = "views"

	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// SearchParams describe catalog filters and paging options. Only active,
// approved listings appear in public results unless Owner is set.
type SearchParams struct {
	Query           string
	Owner           string
	Status          Status
	Category        Category
	Condition       Condition
	Size            string
	Location        string
	PriceMinCents   int64
	PriceMaxCents   int64
	Cleaned         *bool
	SmokeFree       *bool
	WomenOnlyPickup *bool
	Modest          *bool
	Tags            []string
	AvailableFrom   dates.Day
	AvailableTo     dates.Day
	Sort            CatalogSort
	Limit           int
	Offset          int
	IncludeHidden   bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Query = strings.TrimSpace(strings.ToLower(normalized.Query))
	normalized.Location = strings.TrimSpace(strings.ToLower(normalized.Location))
	normalized.Size = strings.TrimSpace(normalized.Size)
	normalized.Tags = normalizeTokens(normalized.Tags)
	if normalized.PriceMinCents < 0 {
		normalized.PriceMinCents = 0
	}
	if normalized.PriceMaxCents > 0 && normalized.PriceMaxCents < normalized.PriceMinCents {
		normalized.PriceMaxCents = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByNewest, SortByPriceAsc, SortByPriceDesc, SortByViews:
	default:
		normalized.Sort = SortByNewest
	}
	return normalized
}

// SearchResult carries one page of matches plus the total match count.
type SearchResult struct {
	Items []*Listing
	Total int
}

func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
