package comparator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

func TestBuild_Scenario(t *testing.T) {
	groups := Correlate(scenarioOffers(), CorrelateOptions{ToleranceDays: 1, NoiseFloor: 10})
	m := Build(groups, []string{"A", "B", "C"}, BuildOptions{NoiseFloor: 10})

	assert.Equal(t, []string{"A", "B", "C"}, m.Columns)
	require.Len(t, m.Rows, 2)

	first := m.Rows[0]
	assert.Equal(t, "tottenham|Tottenham vs Arsenal|2026-03-01", first.Key)
	assert.True(t, first.HasMin)
	assert.True(t, first.HasMax)
	assert.Equal(t, 1100.0, first.MinPrice)
	assert.Equal(t, 1200.0, first.MaxPrice)
	assert.True(t, first.Cells["B"].IsMin)
	assert.False(t, first.Cells["B"].IsMax)
	assert.True(t, first.Cells["A"].IsMax)
	assert.False(t, first.Cells["A"].IsMin)
	_, hasC := first.Cell("C")
	assert.False(t, hasC)

	second := m.Rows[1]
	assert.True(t, second.HasMin)
	assert.False(t, second.HasMax, "a single valid price is never the most expensive")
	assert.True(t, second.Cells["C"].IsMin)
	assert.False(t, second.Cells["C"].IsMax)
	assert.Zero(t, second.MaxPrice)
}

func TestBuild_NoiseFloor(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "A", "Tottenham - Arsenal", day(time.March, 1), 5, 2),
		offer(tottenham, "B", "Tottenham - Arsenal", day(time.March, 1), 1500, 2),
		offer(tottenham, "C", "Tottenham - Arsenal", day(time.March, 1), 1700, 2),
	}
	m := Build(Correlate(offers, CorrelateOptions{ToleranceDays: 2, NoiseFloor: 10}), nil, BuildOptions{NoiseFloor: 10})
	require.Len(t, m.Rows, 1)
	r := m.Rows[0]

	assert.Equal(t, 1500.0, r.MinPrice, "5 is below the noise floor and never the minimum")
	a := r.Cells["A"]
	assert.False(t, a.Valid)
	assert.False(t, a.IsMin)
	assert.False(t, a.IsMax)
	assert.Equal(t, 5.0, a.Price, "placeholder cells are still shown")
	assert.True(t, r.Cells["B"].IsMin)
	assert.True(t, r.Cells["C"].IsMax)

	for _, c := range r.Cells {
		if c.Counts() {
			assert.LessOrEqual(t, r.MinPrice, c.Price)
		}
	}
}

func TestBuild_OnlyPlaceholders(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "A", "x", day(time.March, 1), 5, 2),
		offer(tottenham, "B", "x", day(time.March, 1), 9, 2),
	}
	m := Build(Correlate(offers, CorrelateOptions{ToleranceDays: 2, NoiseFloor: 10}), nil, BuildOptions{NoiseFloor: 10})
	require.Len(t, m.Rows, 1)
	assert.False(t, m.Rows[0].HasMin)
	assert.False(t, m.Rows[0].HasMax)
}

func TestBuild_TiesMarkEveryCell(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "A", "x", day(time.March, 1), 1000, 2),
		offer(tottenham, "B", "x", day(time.March, 1), 1000, 2),
		offer(tottenham, "C", "x", day(time.March, 1), 1400, 2),
		offer(tottenham, "D", "x", day(time.March, 1), 1400, 2),
	}
	m := Build(Correlate(offers, CorrelateOptions{ToleranceDays: 2}), nil, BuildOptions{NoiseFloor: 10})
	r := m.Rows[0]
	assert.True(t, r.Cells["A"].IsMin)
	assert.True(t, r.Cells["B"].IsMin)
	assert.True(t, r.Cells["C"].IsMax)
	assert.True(t, r.Cells["D"].IsMax)
}

func TestBuild_AllEqualHasNoMostExpensive(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "A", "x", day(time.March, 1), 1000, 2),
		offer(tottenham, "B", "x", day(time.March, 1), 1000, 2),
	}
	r := Build(Correlate(offers, CorrelateOptions{ToleranceDays: 2}), nil, BuildOptions{NoiseFloor: 10}).Rows[0]
	assert.True(t, r.HasMax)
	assert.True(t, r.Cells["A"].IsMin)
	assert.True(t, r.Cells["B"].IsMin)
	assert.False(t, r.Cells["A"].IsMax)
	assert.False(t, r.Cells["B"].IsMax)
}

func TestBuild_ColumnsPrimaryPinnedFirst(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "zeta", "x", day(time.March, 1), 1000, 2),
		offer(tottenham, "footballtravel", "x", day(time.March, 1), 1100, 2),
		offer(tottenham, "alpha", "x", day(time.March, 1), 1200, 2),
		offer(tottenham, "olka", "x", day(time.March, 1), 1300, 2),
	}
	groups := Correlate(offers, CorrelateOptions{ToleranceDays: 2})

	m := Build(groups, []string{"olka", "fantravel"}, BuildOptions{Primary: "footballtravel", NoiseFloor: 10})
	assert.Equal(t, []string{"footballtravel", "olka", "fantravel", "alpha", "zeta"}, m.Columns)

	m = Build(groups, []string{"olka", "footballtravel"}, BuildOptions{Primary: "footballtravel", NoiseFloor: 10})
	assert.Equal(t, "footballtravel", m.Columns[0])

	m = Build(nil, []string{"olka"}, BuildOptions{Primary: "footballtravel"})
	assert.Equal(t, []string{"olka"}, m.Columns, "an absent primary gets no column")
	assert.Empty(t, m.Rows)
}

func TestBuild_StrictNights(t *testing.T) {
	offers := []models.RawOffer{
		offer(tottenham, "footballtravel", "x", day(time.March, 1), 2000, 2),
		offer(tottenham, "fantravel", "x", day(time.March, 1), 1500, 3),
		offer(tottenham, "olka", "x", day(time.March, 1), 1800, 2),
		offer(tottenham, "other", "x", day(time.March, 1), 1000, 0), // unknown nights stay comparable
	}
	groups := Correlate(offers, CorrelateOptions{ToleranceDays: 2})

	loose := Build(groups, nil, BuildOptions{Primary: "footballtravel", NoiseFloor: 10}).Rows[0]
	assert.True(t, loose.Cells["fantravel"].Comparable)
	assert.Equal(t, 1000.0, loose.MinPrice)

	strict := Build(groups, nil, BuildOptions{Primary: "footballtravel", NoiseFloor: 10, StrictNights: true}).Rows[0]
	fan := strict.Cells["fantravel"]
	assert.False(t, fan.Comparable)
	assert.False(t, fan.IsMin)
	assert.True(t, strict.Cells["other"].IsMin)
	assert.True(t, strict.Cells["footballtravel"].IsMax)
	assert.Equal(t, 2000.0, strict.MaxPrice)
}

func TestBuild_Pure(t *testing.T) {
	groups := Correlate(scenarioOffers(), CorrelateOptions{ToleranceDays: 1, NoiseFloor: 10})
	a := Build(groups, []string{"A"}, BuildOptions{NoiseFloor: 10})
	b := Build(groups, []string{"A"}, BuildOptions{NoiseFloor: 10})
	assert.Equal(t, a, b)
	assert.Len(t, groups[0].OffersBySource, 2, "groups are not modified")
}

func TestRowKey_Undated(t *testing.T) {
	g := MatchGroup{Entity: tottenham, Label: "Tottenham - TBA", Undated: true}
	assert.Equal(t, "tottenham|Tottenham - TBA|undated", RowKey(g))
}
