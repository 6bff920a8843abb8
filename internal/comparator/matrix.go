package comparator

import (
	"sort"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// Cell is one source's price for one match row.
type Cell struct {
	Price      float64 `json:"price"`
	Nights     int     `json:"nights"`
	Link       string  `json:"link,omitempty"`
	Origin     string  `json:"origin,omitempty"`
	Valid      bool    `json:"valid"`      // above the noise floor
	Comparable bool    `json:"comparable"` // false when the stay length differs from the primary
	IsMin      bool    `json:"is_min"`
	IsMax      bool    `json:"is_max"`
}

// Counts reports whether the cell takes part in min/max.
func (c Cell) Counts() bool { return c.Valid && c.Comparable }

type Row struct {
	Key      string                 `json:"key"`
	Entity   models.CanonicalEntity `json:"entity"`
	Label    string                 `json:"label"`
	Date     time.Time              `json:"date"`
	Undated  bool                   `json:"undated"`
	Cells    map[string]Cell        `json:"cells"`
	MinPrice float64                `json:"min_price,omitempty"`
	MaxPrice float64                `json:"max_price,omitempty"`
	HasMin   bool                   `json:"has_min"`
	HasMax   bool                   `json:"has_max"` // at least two cells count
}

// Cell returns the cell for a source.
func (r Row) Cell(source string) (Cell, bool) {
	c, ok := r.Cells[source]
	return c, ok
}

// Matrix is the final comparison table. Columns are in display order, primary first.
type Matrix struct {
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	Primary    string   `json:"primary,omitempty"`
	NoiseFloor float64  `json:"noise_floor"`
}

type BuildOptions struct {
	Primary    string
	NoiseFloor float64
	// StrictNights excludes competitor cells whose known stay length differs from the
	// primary cell's known stay length.
	StrictNights bool
}

// Build pivots groups into a matrix. It has no side effects and the same input always
// yields the same matrix.
func Build(groups []MatchGroup, sourceOrder []string, opts BuildOptions) Matrix {
	m := Matrix{
		Columns:    columns(groups, sourceOrder, opts.Primary),
		Primary:    opts.Primary,
		NoiseFloor: opts.NoiseFloor,
		Rows:       make([]Row, 0, len(groups)),
	}
	for _, g := range groups {
		m.Rows = append(m.Rows, buildRow(g, opts))
	}
	return m
}

// columns lists the caller's order with the primary pinned first, then any source that
// appears in the groups but not in the order, alphabetically.
func columns(groups []MatchGroup, order []string, primary string) []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		cols = append(cols, s)
	}

	present := make(map[string]bool)
	for _, g := range groups {
		for src := range g.OffersBySource {
			present[src] = true
		}
	}
	inOrder := false
	for _, s := range order {
		if s == primary {
			inOrder = true
		}
	}
	if primary != "" && (present[primary] || inOrder) {
		add(primary)
	}
	for _, s := range order {
		add(s)
	}
	var extra []string
	for s := range present {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		add(s)
	}
	return cols
}

func buildRow(g MatchGroup, opts BuildOptions) Row {
	r := Row{
		Key:     RowKey(g),
		Entity:  g.Entity,
		Label:   g.Label,
		Date:    g.Date,
		Undated: g.Undated,
		Cells:   make(map[string]Cell, len(g.OffersBySource)),
	}

	primaryNights := 0
	if p, ok := g.OffersBySource[opts.Primary]; ok && opts.Primary != "" {
		primaryNights = p.Nights
	}

	for src, o := range g.OffersBySource {
		c := Cell{
			Price:      o.Price,
			Nights:     o.Nights,
			Link:       o.Link,
			Origin:     o.Origin,
			Valid:      o.Price > opts.NoiseFloor,
			Comparable: true,
		}
		if opts.StrictNights && src != opts.Primary && primaryNights > 0 && o.Nights > 0 && o.Nights != primaryNights {
			c.Comparable = false
		}
		r.Cells[src] = c
	}

	counted := 0
	for _, c := range r.Cells {
		if !c.Counts() {
			continue
		}
		if counted == 0 || c.Price < r.MinPrice {
			r.MinPrice = c.Price
		}
		if counted == 0 || c.Price > r.MaxPrice {
			r.MaxPrice = c.Price
		}
		counted++
	}
	r.HasMin = counted >= 1
	r.HasMax = counted >= 2
	if !r.HasMax {
		r.MaxPrice = 0
	}

	for src, c := range r.Cells {
		if !c.Counts() {
			continue
		}
		c.IsMin = c.Price == r.MinPrice
		// a row where every counted price is equal has no most expensive cell
		c.IsMax = r.HasMax && r.MaxPrice > r.MinPrice && c.Price == r.MaxPrice
		r.Cells[src] = c
	}
	return r
}

// RowKey identifies a row: club, representative label and date.
func RowKey(g MatchGroup) string {
	date := "undated"
	if !g.Undated {
		date = g.Date.Format("2006-01-02")
	}
	return g.Entity.ID + "|" + g.Label + "|" + date
}
