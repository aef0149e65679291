package netgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
)

type jsonNode struct {
	Ref  string `json:"ref,omitempty"`
	Pin  string `json:"pin,omitempty"`
	Port string `json:"port,omitempty"`
	Type string `json:"type"`
}

type jsonNet struct {
	Name     string     `json:"name"`
	Ordinal  int        `json:"ordinal"`
	Explicit bool       `json:"explicit"`
	Nodes    []jsonNode `json:"nodes"`
}

// ExportJSON exports the nets and merge log as JSON.
func (b *Builder) ExportJSON() ([]byte, error) {
	nets := b.Nets()
	out := struct {
		Version   string       `json:"version"`
		NetCount  int          `json:"net_count"`
		MultiNets int          `json:"multi_pin_nets"`
		Nets      []jsonNet    `json:"nets"`
		Merges    []MergeEvent `json:"merges,omitempty"`
	}{
		Version: "1.0",
		Nets:    make([]jsonNet, 0, len(nets)),
		Merges:  b.Merges(),
	}
	for _, n := range nets {
		jn := jsonNet{Name: n.Name, Ordinal: n.Ordinal, Explicit: n.Explicit}
		for _, p := range n.Pins {
			node := jsonNode{Type: p.Type().String()}
			if p.IsPort() {
				node.Port = p.Name()
			} else {
				node.Ref, node.Pin = p.Reference(), p.Number()
			}
			jn.Nodes = append(jn.Nodes, node)
		}
		if len(n.Pins) > 1 {
			out.MultiNets++
		}
		out.Nets = append(out.Nets, jn)
	}
	out.NetCount = len(out.Nets)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("netgraph: encode json: %w", err)
	}
	return data, nil
}

// ExportKiCad writes a KiCad (export (version D)) netlist for the given
// components. Boundary pins have no footprint and are left out; nets that
// end up with a single node are still listed, as KiCad does.
func (b *Builder) ExportKiCad(source string, components []*circuit.Component) string {
	var sb strings.Builder
	sb.WriteString("(export (version \"E\")\n")
	sb.WriteString("  (design\n")
	fmt.Fprintf(&sb, "    (source %q)\n", source)
	sb.WriteString("    (tool \"kibuild\"))\n")

	sorted := append([]*circuit.Component(nil), components...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return refLess(sorted[i].Reference(), sorted[j].Reference())
	})
	sb.WriteString("  (components")
	for _, c := range sorted {
		fmt.Fprintf(&sb, "\n    (comp (ref %q)\n", c.Reference())
		fmt.Fprintf(&sb, "      (value %q)\n", c.Value())
		fmt.Fprintf(&sb, "      (footprint %q)\n", c.Footprint())
		if c.Symbol() != "" {
			lib, part, _ := strings.Cut(c.Symbol(), ":")
			fmt.Fprintf(&sb, "      (libsource (lib %q) (part %q))\n", lib, part)
		}
		fmt.Fprintf(&sb, "      (tstamps %q))", c.UUID())
	}
	sb.WriteString(")\n")

	sb.WriteString("  (nets")
	code := 0
	for _, n := range b.Nets() {
		var nodes []*circuit.Pin
		for _, p := range n.Pins {
			if !p.IsPort() {
				nodes = append(nodes, p)
			}
		}
		if len(nodes) == 0 {
			continue
		}
		code++
		fmt.Fprintf(&sb, "\n    (net (code \"%d\") (name %q)", code, n.Name)
		for _, p := range nodes {
			fmt.Fprintf(&sb, "\n      (node (ref %q) (pin %q) (pintype %q))", p.Reference(), p.Number(), p.Type().String())
		}
		sb.WriteString(")")
	}
	sb.WriteString("))\n")
	return sb.String()
}

// refLess orders designators by prefix and then numerically, so R2 sorts
// before R10.
func refLess(a, b string) bool {
	pa, na := splitRef(a)
	pb, nb := splitRef(b)
	if pa != pb {
		return pa < pb
	}
	if len(na) != len(nb) {
		return len(na) < len(nb)
	}
	return na < nb
}

func splitRef(ref string) (string, string) {
	i := len(ref)
	for i > 0 && ref[i-1] >= '0' && ref[i-1] <= '9' {
		i--
	}
	return ref[:i], ref[i:]
}
