package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write kibuild settings",
	Long: `Settings live in kibuild.json in the working directory. KIBUILD_KICAD_PATH,
KIBUILD_KICAD_CLI and KIBUILD_BUILD_DIR override the stored values, and may
also be set in a .env file.

Examples:
  kibuild config get
  kibuild config get kicad_cli
  kibuild config set kicad_path /usr/share/kicad/`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			v, src := store.Lookup(args[0])
			if verbose && src != "" {
				fmt.Fprintf(out, "%s\t(%s)\n", v, src)
				return nil
			}
			fmt.Fprintln(out, v)
			return nil
		}
		for _, k := range store.Keys() {
			fmt.Fprintf(out, "%s=%s\n", k, store.Get(k))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting; an empty value removes it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "+ %s saved to %s\n", args[0], store.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
