package matching

import (
	"sort"

	"modaapi/models"
	"modaapi/textutil"
)

// Scored is a candidate with its computed relevance and, for location
// strategies, its distance from the requester in kilometers.
type Scored struct {
	Garment  models.Garment
	Score    float64
	Distance *float64
	Degraded bool
}

// Page is one ranked slice of the full result set.
type Page struct {
	Items      []models.Garment
	TotalCount int
	Page       int
	HasMore    bool
}

// defaultDirection is the natural order per sort key when the caller
// gives none.
func defaultDirection(sortBy SortOption) Direction {
	switch sortBy {
	case SortRelevance, SortDateAdded, SortPopularity:
		return OrderDesc
	default:
		return OrderAsc
	}
}

// Rank orders the scored candidates, then cuts the requested page.
// Identical inputs always produce identical ordering: equal primary
// keys fall back to garment id, so pagination stays reproducible even
// while the catalog mutates between page requests.
func Rank(scored []Scored, sortBy SortOption, order Direction, page, pageSize int) Page {
	if sortBy == "" {
		sortBy = SortRelevance
	}
	if order == "" {
		order = defaultDirection(sortBy)
	}

	ranked := make([]Scored, len(scored))
	copy(ranked, scored)

	less := lessFunc(sortBy)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if cmp := less(a, b); cmp != 0 {
			if order == OrderDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return a.Garment.ID < b.Garment.ID
	})

	total := len(ranked)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]models.Garment, 0, end-start)
	for _, s := range ranked[start:end] {
		items = append(items, s.Garment)
	}
	return Page{
		Items:      items,
		TotalCount: total,
		Page:       page,
		HasMore:    page*pageSize < total,
	}
}

// lessFunc returns a three-way comparison in ascending terms for the
// sort key. Missing values (no price, no distance, no brand) compare
// as largest.
func lessFunc(sortBy SortOption) func(a, b *Scored) int {
	switch sortBy {
	case SortDateAdded:
		return func(a, b *Scored) int {
			at, bt := a.Garment.CreatedAt, b.Garment.CreatedAt
			if at.Before(bt) {
				return -1
			}
			if at.After(bt) {
				return 1
			}
			return 0
		}
	case SortPrice:
		return func(a, b *Scored) int {
			ap, bp := a.Garment.Price, b.Garment.Price
			switch {
			case !ap.Valid && !bp.Valid:
				return 0
			case !ap.Valid:
				return 1
			case !bp.Valid:
				return -1
			}
			return ap.Decimal.Cmp(bp.Decimal)
		}
	case SortPopularity:
		return func(a, b *Scored) int {
			return a.Garment.Popularity() - b.Garment.Popularity()
		}
	case SortDistance:
		return func(a, b *Scored) int {
			switch {
			case a.Distance == nil && b.Distance == nil:
				return 0
			case a.Distance == nil:
				return 1
			case b.Distance == nil:
				return -1
			}
			return compareFloat(*a.Distance, *b.Distance)
		}
	case SortCondition:
		return func(a, b *Scored) int {
			return models.ConditionRank[a.Garment.Condition] - models.ConditionRank[b.Garment.Condition]
		}
	case SortBrand:
		return func(a, b *Scored) int {
			ab, bb := brandKey(&a.Garment), brandKey(&b.Garment)
			switch {
			case ab == bb:
				return 0
			case ab == "":
				return 1
			case bb == "":
				return -1
			case ab < bb:
				return -1
			}
			return 1
		}
	default: // relevance
		return func(a, b *Scored) int {
			return compareFloat(a.Score, b.Score)
		}
	}
}

func brandKey(g *models.Garment) string {
	if g.Brand == nil {
		return ""
	}
	return textutil.Canonical(*g.Brand)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
