package footballtravel

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/textparse"
	"github.com/Vodeneev/tripprices/internal/sources"
)

const DefaultFeedURL = "https://api.footballtravel.com/feed/footballtravel-dk/all-offers.csv"

// The feed has no header row; columns are positional.
const (
	colType     = 1
	colPrice    = 4
	colClub     = 7
	colOpponent = 8
	colDate     = 14
	colNights   = 16
)

// FeedRow is one line of the offers feed.
type FeedRow struct {
	Type     string
	Price    float64 // 0 when unparseable
	Club     string  // home team
	Opponent string
	Date     time.Time // zero when unparseable
	Nights   int
}

// IsHotelPackage reports whether the row sells a match ticket together with a hotel stay.
func (r FeedRow) IsHotelPackage() bool {
	return strings.Contains(strings.ToLower(r.Type), "billet + hotel")
}

// Label is the fixture text shown for the row, home team first.
func (r FeedRow) Label() string {
	return r.Club + " – " + r.Opponent
}

// ParseFeed reads the CSV feed. Short rows are skipped; a malformed CSV stream is an error.
func ParseFeed(r io.Reader) ([]FeedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []FeedRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse feed: %w", err)
		}
		if len(rec) <= colNights {
			continue
		}
		row := FeedRow{
			Type:     strings.TrimSpace(rec[colType]),
			Club:     strings.TrimSpace(rec[colClub]),
			Opponent: strings.TrimSpace(rec[colOpponent]),
			Nights:   textparse.FirstInt(rec[colNights]),
		}
		row.Price, _ = textparse.ParsePrice(rec[colPrice])
		row.Date, _ = textparse.ParseDayFirst(rec[colDate])
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadFeed returns the parsed feed, served from the page cache while ttl allows.
func LoadFeed(ctx context.Context, pages sources.Pages, url string, ttl time.Duration) ([]FeedRow, error) {
	body, err := pages.Get(ctx, url, ttl)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	rows, err := ParseFeed(bytes.NewReader(body))
	if err != nil {
		return nil, sources.Permanent(err)
	}
	return rows, nil
}
