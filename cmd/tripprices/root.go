package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/logging"
	"github.com/Vodeneev/tripprices/internal/pkg/output"
	"github.com/Vodeneev/tripprices/internal/sources"
)

// cli carries the state shared by all subcommands of one invocation.
type cli struct {
	cfgFile   string
	verbose   bool
	colorMode string

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tripprices",
		Short: "Compare football travel package prices",
		Long: `tripprices scrapes Danish football travel sites, groups their offers by fixture
and shows which provider is cheapest for every match.

Example usage:
  tripprices compare Tottenham Arsenal      # Price matrix for two clubs
  tripprices compare Spurs --overpriced     # Only matches where the primary source is undercut
  tripprices serve                          # HTTP API with /compare and /metrics
  tripprices clubs                          # Known clubs and their aliases`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default $CONFIG_PATH or "+config.DefaultConfigPath+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log progress while fetching")
	root.PersistentFlags().StringVar(&c.colorMode, "color", "auto", "colorize output: auto, always or never")

	root.AddCommand(
		newCompareCmd(c),
		newServeCmd(c),
		newClubsCmd(c),
		newSourcesCmd(c),
	)
	return root
}

// init loads and validates the config and sets up logging. Interactive commands log
// warnings only unless --verbose is given.
func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Path(c.cfgFile))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(sources.AvailableNames()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.cfg = cfg

	logCfg := cfg.Logging
	if c.verbose {
		logCfg.Level = "DEBUG"
	} else if cmd.Name() != "serve" {
		logCfg.Level = "WARN"
	}
	_, c.logCloser = logging.SetupLogger(&logCfg, "tripprices")
	slog.Debug("Config loaded", "path", config.Path(c.cfgFile), "sources", cfg.Sources.Enabled)
	return nil
}

func (c *cli) printer(cmd *cobra.Command) (*output.Printer, error) {
	mode, err := output.ParseColorMode(c.colorMode)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode), nil
}
