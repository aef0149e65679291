package cmd

import (
	"fmt"
	"os"
	"sort"

	chewsexp "github.com/chewxy/sexp"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the structure of a KiCad file",
	Long: `Parse a KiCad S-expression file and print a census of its top-level
entries. The file is also read by an independent parser as a cross-check.

Examples:
  kibuild inspect build/blinky.kicad_pcb
  kibuild inspect /usr/share/kicad/symbols/Device.kicad_sym`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	filename := args[0]

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	root, err := kicadsexp.ParseRoot(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	fmt.Fprintf(out, "File: %s\n", filename)
	fmt.Fprintf(out, "Root: %s (%d entries)\n", root.Key(), root.Len()-1)
	if v, ok := sexp.FindNode(root, "version"); ok {
		if n, err := sexp.GetInt(v, 1); err == nil {
			fmt.Fprintf(out, "Version: %d\n", n)
		}
	}
	if id, err := sexp.GetUUID(root); err == nil {
		fmt.Fprintf(out, "UUID: %s\n", id)
	}

	counts := make(map[string]int)
	for _, it := range sexp.GetListItems(root) {
		if l, ok := it.(*kicadsexp.List); ok {
			counts[l.Key()]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "\nTop-level entries:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[k])
	}

	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	other, err := chewsexp.Parse(f)
	if err != nil {
		fmt.Fprintf(out, "\nCross-check: independent parser failed: %v\n", err)
		return nil
	}
	if len(other) == 1 && !other[0].IsLeaf() && other[0].LeafCount() != root.Len() {
		fmt.Fprintf(out, "\nCross-check: MISMATCH, %d elements vs %d\n", other[0].LeafCount(), root.Len())
		return nil
	}
	fmt.Fprintf(out, "\nCross-check: ok (%d expression(s))\n", len(other))
	return nil
}
