package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kibuild/internal/report"
	"github.com/OpenTraceLab/kibuild/pkg/project"
)

var (
	ercOutput  string
	ercShowAll bool
)

var ercCmd = &cobra.Command{
	Use:   "erc <schematic>",
	Short: "Run KiCad's electrical rules check on a schematic",
	Long: `Run kicad-cli's ERC and list its violations. The command fails when
any violation is an error.

Examples:
  kibuild erc build/blinky.kicad_sch
  kibuild erc --show-all build/blinky.kicad_sch`,
	Args: cobra.ExactArgs(1),
	RunE: runERC,
}

func init() {
	rootCmd.AddCommand(ercCmd)

	ercCmd.Flags().StringVarP(&ercOutput, "output", "o", "", "JSON report path (default next to the schematic)")
	ercCmd.Flags().BoolVar(&ercShowAll, "show-all", false, "list warnings as well as errors")
}

func runERC(cmd *cobra.Command, args []string) error {
	c, err := kicadCLI(cmd)
	if err != nil {
		return err
	}
	sch := args[0]
	out := ercOutput
	if out == "" {
		out = strings.TrimSuffix(sch, ".kicad_sch") + ".json"
	}

	rep, _, err := c.RunERC(cmd.Context(), sch, out)
	if err != nil {
		return err
	}

	r := report.New(cmd.OutOrStdout())
	for _, v := range rep.Errors() {
		r.Errorf("%s: %s", v.Type, v.Description)
	}
	if ercShowAll {
		for _, v := range rep.Warnings() {
			r.Warnf("%s: %s", v.Type, v.Description)
		}
	}
	r.Summary()
	if n := len(rep.Errors()); n > 0 {
		return fmt.Errorf("%w: %d error(s) in %s", project.ErrERCFailed, n, sch)
	}
	return nil
}
