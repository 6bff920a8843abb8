// Package output renders comparisons for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Vodeneev/tripprices/internal/comparator"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// ColorMode represents color output mode
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto", "":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides whether to colorize based on mode and environment.
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return !color.NoColor
	}
}

// Printer writes tables and messages to a terminal.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func NewPrinter(out, errOut io.Writer, mode ColorMode) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, useColors: ResolveColors(mode)}
}

// Warning prints to the error stream.
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Header prints a section header
func (p *Printer) Header(title string) {
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", repeatChar('─', len([]rune(title))))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, repeatChar('-', len([]rune(title))))
	}
}

// PrintMatrix prints one row per fixture with a column per source. The cheapest cell is
// green and marked "*", the most expensive red and marked "!". Cells below the noise
// floor or with a different stay length are shown in parentheses.
func (p *Printer) PrintMatrix(m comparator.Matrix) {
	if len(m.Rows) == 0 {
		fmt.Fprintln(p.out, "No offers found.")
		return
	}
	headers := append([]string{"Club", "Match", "Date"}, m.Columns...)
	t := NewTableWithWriter(p.out, headers)
	for _, r := range m.Rows {
		row := []string{r.Entity.String(), r.Label, formatDate(r)}
		for _, col := range m.Columns {
			row = append(row, p.cell(r, col))
		}
		t.AddRow(row)
	}
	t.Render()
}

func (p *Printer) cell(r comparator.Row, source string) string {
	c, ok := r.Cell(source)
	if !ok {
		return "-"
	}
	text := FormatPrice(c.Price, c.Nights)
	switch {
	case !c.Counts():
		return p.dim("(" + text + ")")
	case c.IsMin:
		if p.useColors {
			return color.GreenString(text + " *")
		}
		return text + " *"
	case c.IsMax:
		if p.useColors {
			return color.RedString(text + " !")
		}
		return text + " !"
	default:
		return text
	}
}

// PrintOverpriced lists fixtures where the primary source is undercut.
func (p *Printer) PrintOverpriced(primary string, rows []comparator.OverpricedRow) {
	p.Header(fmt.Sprintf("Overpriced on %s (%d)", primary, len(rows)))
	if len(rows) == 0 {
		fmt.Fprintln(p.out, "None.")
		return
	}
	t := NewTableWithWriter(p.out, []string{"Club", "Match", "Date", primary, "Cheapest", "Price", "Diff"})
	for _, r := range rows {
		date := "undated"
		if !r.Undated {
			date = r.Date.Format("02.01.2006")
		}
		diff := fmt.Sprintf("+%.0f kr (+%.1f%%)", r.Diff, r.DiffPercent)
		if p.useColors {
			diff = color.RedString(diff)
		}
		t.AddRow([]string{
			r.Entity,
			r.Label,
			date,
			FormatPrice(r.PrimaryPrice, r.PrimaryNights),
			r.CheapestSource,
			FormatPrice(r.CheapestPrice, r.CheapestNights),
			diff,
		})
	}
	t.Render()
}

// PrintSummary prints which sources contributed and what went missing.
func (p *Printer) PrintSummary(c *comparator.Comparison) {
	fmt.Fprintf(p.out, "\nRun %s in %s: %d rows, sources %v\n",
		c.RunID, c.Duration.Round(time.Millisecond), len(c.Matrix.Rows), c.Contributing)
	if len(c.Failed) > 0 {
		p.Warning("sources without offers: %v", c.Failed)
	}
	if len(c.Unmatched) > 0 {
		p.Warning("unknown clubs: %v", c.Unmatched)
	}
	for _, e := range c.Unresolved {
		p.Warning("no source has a page for %s", e)
	}
	for _, f := range c.ResolveFailures {
		p.Warning("%s could not resolve %s: %s", f.Source, f.Entity, f.Error)
	}
}

// PrintClubs lists canonical clubs with their aliases.
func (p *Printer) PrintClubs(clubs []models.CanonicalEntity, aliases func(id string) []string) {
	t := NewTableWithWriter(p.out, []string{"ID", "Name", "Aliases"})
	for _, e := range clubs {
		var names []string
		if aliases != nil {
			for _, a := range aliases(e.ID) {
				if a != e.Name {
					names = append(names, a)
				}
			}
		}
		t.AddRow([]string{e.ID, p.bold(e.Name), strings.Join(names, ", ")})
	}
	t.Render()
}

// PrintSources lists source names, marking the primary and the enabled ones.
func (p *Printer) PrintSources(all []string, enabled map[string]bool, primary string) {
	t := NewTableWithWriter(p.out, []string{"Source", "Enabled", "Primary"})
	for _, name := range all {
		on, prim := "no", ""
		if enabled[name] {
			on = "yes"
			if p.useColors {
				on = color.GreenString("yes")
			}
		}
		if name == primary {
			prim = "yes"
		}
		t.AddRow([]string{name, on, prim})
	}
	t.Render()
}

// FormatPrice renders a price as whole kroner with the stay length when known.
func FormatPrice(price float64, nights int) string {
	if nights > 0 {
		return fmt.Sprintf("%.0f kr (%dn)", price, nights)
	}
	return fmt.Sprintf("%.0f kr", price)
}

func formatDate(r comparator.Row) string {
	if r.Undated {
		return "undated"
	}
	return r.Date.Format("02.01.2006")
}

func (p *Printer) bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}

func (p *Printer) dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}

func repeatChar(char rune, count int) string {
	result := make([]rune, count)
	for i := range result {
		result[i] = char
	}
	return string(result)
}
