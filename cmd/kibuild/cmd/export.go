package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var exportOutput string

var netlistCmd = &cobra.Command{
	Use:   "netlist <schematic>",
	Short: "Export a KiCad netlist with kicad-cli",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0], ".net", "netlist")
	},
}

var bomCmd = &cobra.Command{
	Use:   "bom <schematic>",
	Short: "Export a CSV bill of materials with kicad-cli",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0], ".csv", "bom")
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <footprints.pretty>",
	Short: "Upgrade a footprint library to the current KiCad format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := kicadCLI(cmd)
		if err != nil {
			return err
		}
		if err := c.UpgradeFootprints(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "+ upgraded %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{netlistCmd, bomCmd} {
		c.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default next to the schematic)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(upgradeCmd)
}

func runExport(cmd *cobra.Command, sch, ext, what string) error {
	c, err := kicadCLI(cmd)
	if err != nil {
		return err
	}
	out := exportOutput
	if out == "" {
		out = strings.TrimSuffix(sch, ".kicad_sch") + ext
	}
	switch what {
	case "bom":
		err = c.ExportBOM(cmd.Context(), sch, out)
	default:
		err = c.ExportNetlist(cmd.Context(), sch, out)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "+ %s %s\n", what, out)
	return nil
}
