package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const deviceLib = `(kicad_symbol_lib (version 20231120) (generator "kicad_symbol_editor")
  (symbol "R" (property "Reference" "R" (at 2.032 0 90) (effects (font (size 1.27 1.27))))
    (symbol "R_1_1"
      (pin passive line (at 0 3.81 270) (length 1.27) (name "~") (number "1"))
      (pin passive line (at 0 -3.81 90) (length 1.27) (name "~") (number "2")))))
`

const resistorFootprint = `(footprint "R_0603" (layer "F.Cu")
  (property "Reference" "REF**" (at 0 -1.43 0) (layer "F.SilkS"))
  (pad "1" smd roundrect (at -0.7875 0) (size 0.875 0.95) (layers "F.Cu"))
  (pad "2" smd roundrect (at 0.7875 0) (size 0.875 0.95) (layers "F.Cu")))
`

const divider = `name: divider
components:
  - {ref: R1, symbol: "Device:R", value: 10k, footprint: "Resistor_SMD:R_0603"}
  - {ref: R2, symbol: "Device:R", value: 10k, footprint: "Resistor_SMD:R_0603"}
nets:
  - {name: VIN, pins: ["R1:1"]}
  - {name: VOUT, pins: ["R1:2", "R2:1"]}
  - {name: GND, pins: ["R2:2"]}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Reset flags to prevent accumulation between tests
	verbose = false
	buildDir, netPrefix = "", ""
	symbolDirs, footprintDirs = nil, nil
	noBoard, noERC, noAutoPlace, failOnWarning = false, false, false, false
	withNetlist, withBOM, withKiCadERC, withNetJSON, showAll = false, false, false, false, false
	exportOutput, ercOutput = "", ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestConfigE2E(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "kibuild.json")
	env := filepath.Join(dir, "none.env")
	t.Setenv("KIBUILD_KICAD_CLI", "")

	out, err := run(t, "--config", cfg, "--env", env, "config", "set", "kicad_cli", "/opt/kicad-cli")
	if err != nil {
		t.Fatalf("config set: %v\n%s", err, out)
	}
	if !strings.Contains(out, "kicad_cli saved") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = run(t, "--config", cfg, "--env", env, "config", "get", "kicad_cli")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "/opt/kicad-cli" {
		t.Errorf("config get = %q", out)
	}

	out, err = run(t, "--config", cfg, "--env", env, "config", "get")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "kicad_cli=/opt/kicad-cli") {
		t.Errorf("config get (all) = %q", out)
	}
}

func TestBuildE2E(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "Device.kicad_sym"), deviceLib)
	writeFile(t, filepath.Join(dir, "fp", "Resistor_SMD.pretty", "R_0603.kicad_mod"), resistorFootprint)
	writeFile(t, filepath.Join(dir, "divider.yaml"), divider)
	outDir := filepath.Join(dir, "out")

	args := []string{
		"--config", filepath.Join(dir, "kibuild.json"), "--env", filepath.Join(dir, "none.env"),
		"build", "--out", outDir,
		"--symbols", filepath.Join(dir, "lib"), "--footprints", filepath.Join(dir, "fp"),
		"--netlist", "--net-json",
		filepath.Join(dir, "divider.yaml"),
	}
	t.Setenv("KIBUILD_KICAD_CLI", "")
	t.Setenv("PATH", "")

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	for _, want := range []string{
		"+ schematic " + filepath.Join(outDir, "divider.kicad_sch"),
		"+ board " + filepath.Join(outDir, "divider.kicad_pcb"),
		"+ netlist ",
		"0 error(s), 0 warning(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// a second build keeps both footprints and adds nothing
	out, err = run(t, args...)
	if err != nil {
		t.Fatalf("rebuild: %v\n%s", err, out)
	}
	if !strings.Contains(out, "(0 added, 2 updated, 0 removed)") {
		t.Errorf("rebuild output:\n%s", out)
	}

	out, err = run(t, "--config", filepath.Join(dir, "kibuild.json"), "--env", filepath.Join(dir, "none.env"),
		"inspect", filepath.Join(outDir, "divider.kicad_pcb"))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Root: kicad_pcb", "footprint", "Cross-check"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildMissingDesign(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--config", filepath.Join(dir, "kibuild.json"), "--env", filepath.Join(dir, "none.env"),
		"build", filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing design file")
	}
}

func TestERCNeedsCLI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KIBUILD_KICAD_CLI", "")
	t.Setenv("PATH", "")
	_, err := run(t, "--config", filepath.Join(dir, "kibuild.json"), "--env", filepath.Join(dir, "none.env"),
		"erc", "x.kicad_sch")
	if err == nil || !strings.Contains(err.Error(), "kicad-cli") {
		t.Errorf("err = %v", err)
	}
}
