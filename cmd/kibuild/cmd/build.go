package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kibuild/internal/config"
	"github.com/OpenTraceLab/kibuild/internal/report"
	"github.com/OpenTraceLab/kibuild/pkg/design"
	"github.com/OpenTraceLab/kibuild/pkg/project"
)

var (
	buildDir      string
	netPrefix     string
	symbolDirs    []string
	footprintDirs []string
	noBoard       bool
	noERC         bool
	noAutoPlace   bool
	failOnWarning bool
	withNetlist   bool
	withBOM       bool
	withKiCadERC  bool
	withNetJSON   bool
	showAll       bool
)

var buildCmd = &cobra.Command{
	Use:   "build <design.yaml>",
	Short: "Check a design and write its schematic and board",
	Long: `Load a YAML circuit description, run the electrical rules check and
write the schematic(s) and board. An existing board is merged: footprints
keep the position they have there unless the design gives them a pcb
placement, and anything drawn by hand is preserved.

Examples:
  kibuild build blinky.yaml
  kibuild build --out hw --symbols ./lib/symbols blinky.yaml
  kibuild build --netlist --bom --kicad-erc --show-all blinky.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildDir, "out", "o", "", "output directory (default from config, else build)")
	buildCmd.Flags().StringVar(&netPrefix, "prefix", "", "prefix of generated net names")
	buildCmd.Flags().StringSliceVar(&symbolDirs, "symbols", nil, "extra symbol library directories, searched first")
	buildCmd.Flags().StringSliceVar(&footprintDirs, "footprints", nil, "extra footprint library directories, searched first")
	buildCmd.Flags().BoolVar(&noBoard, "no-board", false, "skip the board")
	buildCmd.Flags().BoolVar(&noERC, "no-erc", false, "skip the built-in ERC")
	buildCmd.Flags().BoolVar(&noAutoPlace, "no-autoplace", false, "leave new footprints at their given position")
	buildCmd.Flags().BoolVar(&failOnWarning, "fail-on-warning", false, "treat ERC warnings as errors")
	buildCmd.Flags().BoolVar(&withNetlist, "netlist", false, "export a KiCad netlist")
	buildCmd.Flags().BoolVar(&withBOM, "bom", false, "export a CSV BOM with kicad-cli")
	buildCmd.Flags().BoolVar(&withKiCadERC, "kicad-erc", false, "run kicad-cli ERC on the result")
	buildCmd.Flags().BoolVar(&withNetJSON, "net-json", false, "write the net graph as JSON")
	buildCmd.Flags().BoolVar(&showAll, "show-all", false, "show kicad-cli ERC warnings too")
}

func runBuild(cmd *cobra.Command, args []string) error {
	d, err := design.Load(args[0])
	if err != nil {
		return err
	}

	opts := project.DefaultOptions()
	opts.BuildDir = buildDir
	if opts.BuildDir == "" {
		opts.BuildDir = store.Get(config.KeyBuildDir)
	}
	opts.NetPrefix = netPrefix
	opts.Board = !noBoard
	opts.ERC = !noERC
	opts.AutoPlace = !noAutoPlace
	opts.FailOnWarning = failOnWarning
	opts.Netlist = withNetlist
	opts.BOM = withBOM
	opts.ExternalERC = withKiCadERC
	opts.NetJSON = withNetJSON
	opts.ShowAllWarnings = showAll

	paths := kicad(cmd)
	opts.SymbolDirs = searchDirs(symbolDirs, paths.Symbols)
	opts.FootprintDirs = searchDirs(footprintDirs, paths.Footprints)
	if withBOM || withKiCadERC || (withNetlist && paths.CLI != "") {
		c, err := kicadCLI(cmd)
		if err != nil {
			return err
		}
		opts.CLI = c
	}

	rep := report.New(cmd.OutOrStdout())
	p, err := project.New(d.Name, opts, rep)
	if err != nil {
		return err
	}
	if err := d.Apply(p); err != nil {
		return err
	}
	_, err = p.Generate(cmd.Context())
	rep.Summary()
	return err
}

// searchDirs puts the user's directories ahead of the installed library.
func searchDirs(user []string, installed string) []string {
	dirs := append([]string(nil), user...)
	if installed != "" {
		dirs = append(dirs, installed)
	}
	return dirs
}
