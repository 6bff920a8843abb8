package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/tripprices/internal/comparator"
)

func newCompareCmd(c *cli) *cobra.Command {
	var (
		jsonOut      bool
		overpriced   bool
		strictNights bool
		srcNames     []string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "compare <club>...",
		Short: "Fetch offers and print the price matrix",
		Long: `Fetch offers for the given clubs from every enabled source and print one row per
fixture with a price column per provider. Club names may be any known alias.

Examples:
  tripprices compare Tottenham
  tripprices compare Spurs "Man Utd" --sources footballtravel,fantravel
  tripprices compare Arsenal --strict-nights --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.printer(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			req := comparator.Request{Clubs: args, Sources: srcNames}
			if cmd.Flags().Changed("strict-nights") {
				req.StrictNights = &strictNights
			}
			res, err := a.service.Compare(ctx, req)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if !overpriced {
				p.PrintMatrix(res.Matrix)
			}
			p.PrintOverpriced(res.Matrix.Primary, res.Overpriced)
			p.PrintSummary(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the full comparison as JSON")
	cmd.Flags().BoolVar(&overpriced, "overpriced", false, "print only matches where the primary source is not cheapest")
	cmd.Flags().BoolVar(&strictNights, "strict-nights", false, "do not compare offers whose stay length differs from the primary")
	cmd.Flags().StringSliceVar(&srcNames, "sources", nil, "limit to these sources (default: all enabled)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "abort the run after this long")
	return cmd
}
