package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/tripprices/internal/pkg/normalize"
	"github.com/Vodeneev/tripprices/internal/sources"
)

func newClubsCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "clubs",
		Short: "List known clubs and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clubs, _, err := buildRegistries(c.cfg)
			if err != nil {
				return err
			}
			if jsonOut {
				entries := make([]normalize.Entry, 0, clubs.Len())
				for _, e := range clubs.Entities() {
					entries = append(entries, normalize.Entry{ID: e.ID, Name: e.Name, Aliases: clubs.Aliases(e.ID)})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			p, err := c.printer(cmd)
			if err != nil {
				return err
			}
			p.PrintClubs(clubs.Entities(), clubs.Aliases)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func newSourcesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.printer(cmd)
			if err != nil {
				return err
			}
			enabled := make(map[string]bool, len(c.cfg.Sources.Enabled))
			for _, name := range c.cfg.Sources.Enabled {
				enabled[name] = true
			}
			p.PrintSources(sources.AvailableNames(), enabled, c.cfg.Comparator.PrimarySource)
			return nil
		},
	}
}
