package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kibuild/internal/config"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/cli"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/install"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string

	store *config.Store
)

var rootCmd = &cobra.Command{
	Use:   "kibuild",
	Short: "Generate KiCad schematics and boards from circuit descriptions",
	Long: `kibuild turns a circuit description into KiCad files: a schematic per
sheet and a board that keeps manual placement and routing across rebuilds.

Examples:
  kibuild build blinky.yaml                   # ERC, schematic and board in ./build
  kibuild build --bom --kicad-erc blinky.yaml # also run kicad-cli steps
  kibuild erc build/blinky.kicad_sch          # KiCad's own ERC on a schematic
  kibuild config set kicad_path /usr/share/kicad/`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
		} else if err := config.LoadEnv(); err != nil {
			return err
		}
		s, err := config.Open(configPath)
		if err != nil {
			return err
		}
		store = s
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "load environment overrides from this file (default .env)")
}

// kicad resolves the installation from the loaded configuration.
func kicad(cmd *cobra.Command) install.Paths {
	paths := install.Locate(store)
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "kicad share: %q cli: %q\n", paths.Share, paths.CLI)
	}
	return paths
}

// kicadCLI returns the kicad-cli wrapper or an error telling the user how
// to configure it.
func kicadCLI(cmd *cobra.Command) (*cli.CLI, error) {
	paths := kicad(cmd)
	if paths.CLI == "" {
		return nil, fmt.Errorf("%w: set it with `kibuild config set %s <path>` or %s",
			cli.ErrNotInstalled, config.KeyKiCadCLI, "KIBUILD_KICAD_CLI")
	}
	return cli.New(paths.CLI), nil
}
