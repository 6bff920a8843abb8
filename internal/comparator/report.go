package comparator

import (
	"sort"
	"time"
)

// OverpricedRow is a fixture where the primary source is not the cheapest.
type OverpricedRow struct {
	Key            string    `json:"key"`
	Entity         string    `json:"entity"`
	Label          string    `json:"label"`
	Date           time.Time `json:"date"`
	Undated        bool      `json:"undated"`
	PrimaryPrice   float64   `json:"primary_price"`
	PrimaryNights  int       `json:"primary_nights"`
	CheapestSource string    `json:"cheapest_source"`
	CheapestPrice  float64   `json:"cheapest_price"`
	CheapestNights int       `json:"cheapest_nights"`
	Diff           float64   `json:"diff"`
	DiffPercent    float64   `json:"diff_percent"` // relative to the cheapest price
}

// Overpriced lists rows where the primary cell counts but is not the minimum, most
// overpriced first.
func Overpriced(m Matrix) []OverpricedRow {
	if m.Primary == "" {
		return nil
	}
	var out []OverpricedRow
	for _, r := range m.Rows {
		p, ok := r.Cell(m.Primary)
		if !ok || !p.Counts() || p.IsMin || !r.HasMin {
			continue
		}
		cheapest := ""
		for _, col := range m.Columns {
			if c, ok := r.Cell(col); ok && c.IsMin {
				cheapest = col
				break
			}
		}
		if cheapest == "" {
			continue
		}
		c := r.Cells[cheapest]
		diff := p.Price - c.Price
		out = append(out, OverpricedRow{
			Key:            r.Key,
			Entity:         r.Entity.ID,
			Label:          r.Label,
			Date:           r.Date,
			Undated:        r.Undated,
			PrimaryPrice:   p.Price,
			PrimaryNights:  p.Nights,
			CheapestSource: cheapest,
			CheapestPrice:  c.Price,
			CheapestNights: c.Nights,
			Diff:           diff,
			DiffPercent:    diff / c.Price * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DiffPercent != out[j].DiffPercent {
			return out[i].DiffPercent > out[j].DiffPercent
		}
		return out[i].Key < out[j].Key
	})
	return out
}
