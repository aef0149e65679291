// Package cli drives the kicad-cli executable for the steps kibuild does not
// implement itself: netlist and BOM export, KiCad's own ERC and footprint
// format upgrades.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when no kicad-cli binary is configured.
var ErrNotInstalled = errors.New("kicad-cli not found")

// Runner executes a command and returns its combined output and exit code.
// err is only set when the command could not be run at all.
type Runner func(ctx context.Context, name string, args ...string) (output []byte, code int, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return out.Bytes(), -1, err
	}
	return out.Bytes(), 0, nil
}

// CLI is a kicad-cli installation.
type CLI struct {
	Path string
	Run  Runner
}

// New returns a CLI that runs the binary at path.
func New(path string) *CLI {
	return &CLI{Path: path, Run: ExecRunner}
}

// CommandError reports a kicad-cli invocation that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Code   int
	Output string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("kicad-cli %s: exit status %d", strings.Join(e.Args, " "), e.Code)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, int, error) {
	if c == nil || c.Path == "" {
		return nil, 0, ErrNotInstalled
	}
	run := c.Run
	if run == nil {
		run = ExecRunner
	}
	out, code, err := run(ctx, c.Path, args...)
	if err != nil {
		return out, code, fmt.Errorf("cli: %s: %w", c.Path, err)
	}
	return out, code, nil
}

func (c *CLI) mustSucceed(ctx context.Context, args ...string) error {
	out, code, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandError{Args: args, Code: code, Output: string(out)}
	}
	return nil
}

// ExportNetlist writes the KiCad netlist of sch to out.
func (c *CLI) ExportNetlist(ctx context.Context, sch, out string) error {
	return c.mustSucceed(ctx, "sch", "export", "netlist", "--output", out, sch)
}

// ExportBOM writes a CSV bill of materials with every field of sch to out.
func (c *CLI) ExportBOM(ctx context.Context, sch, out string) error {
	return c.mustSucceed(ctx, "sch", "export", "bom", "--fields", "*", "--output", out, sch)
}

// UpgradeFootprints rewrites the footprints in a .pretty directory to the
// current file format.
func (c *CLI) UpgradeFootprints(ctx context.Context, dir string) error {
	return c.mustSucceed(ctx, "fp", "upgrade", dir)
}

// RunERC runs KiCad's electrical rules check on sch, writing the JSON report
// to out. A non-zero exit code signals violations and is returned rather
// than treated as a failure; the parsed report is returned alongside it.
func (c *CLI) RunERC(ctx context.Context, sch, out string) (*Report, int, error) {
	output, code, err := c.run(ctx, "sch", "erc", "--exit-code-violations", "--format", "json", "--output", out, sch)
	if err != nil {
		return nil, code, err
	}
	data, err := os.ReadFile(out)
	if err != nil {
		if code != 0 {
			return nil, code, &CommandError{Args: []string{"sch", "erc", sch}, Code: code, Output: string(output)}
		}
		return nil, code, fmt.Errorf("cli: read erc report: %w", err)
	}
	rep, err := ParseReport(data)
	if err != nil {
		return nil, code, err
	}
	return rep, code, nil
}
