// Package netgraph builds the connectivity graph of a circuit.
//
// Pins are unioned into named groups (nets). A pin belongs to at most one
// group; a declaration that touches pins already grouped merges into the
// existing group and the existing name survives. Groups are tracked with
// parent pointers over group ordinals, so a merge is a pointer update rather
// than a rescan of every group.
package netgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/kibuild/pkg/circuit"
)

// DefaultPrefix is the prefix of synthesized net names.
const DefaultPrefix = "net"

// ErrInvalidPin is wrapped by PinError.
var ErrInvalidPin = errors.New("invalid pin")

// ErrNoPins is returned by Union when called without pins.
var ErrNoPins = errors.New("netgraph: union of no pins")

// PinError reports which argument of a Union or NoConnect call was malformed.
// Nothing is applied when it is returned.
type PinError struct {
	Index  int
	Reason string
}

func (e *PinError) Error() string {
	return fmt.Sprintf("netgraph: pin %d: %s", e.Index, e.Reason)
}

func (e *PinError) Unwrap() error { return ErrInvalidPin }

// Net is a finalized group of electrically identical pins.
type Net struct {
	Name     string
	Ordinal  int
	Explicit bool
	Pins     []*circuit.Pin
}

// MergeEvent records a name that did not survive a merge.
type MergeEvent struct {
	Name    string `json:"name"`    // name that was dropped
	Into    string `json:"into"`    // surviving net name
	Ordinal int    `json:"ordinal"` // surviving net ordinal
}

type group struct {
	name     string
	explicit bool
	pins     []*circuit.Pin
	keys     map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithPrefix sets the prefix of synthesized net names.
func WithPrefix(prefix string) Option {
	return func(b *Builder) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// Builder accumulates union declarations. A Builder must not be shared
// between builds.
type Builder struct {
	prefix  string
	counter int

	groups []*group
	parent []int          // group ordinal -> parent ordinal
	member map[string]int // pin key -> ordinal of the group it was added to
	names  map[string]int // every name ever used, including absorbed ones
	merges []MergeEvent
}

// New returns an empty builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		prefix: DefaultPrefix,
		member: make(map[string]int),
		names:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Prefix returns the prefix used for synthesized names.
func (b *Builder) Prefix() string { return b.prefix }

func (b *Builder) find(ord int) int {
	root := ord
	for b.parent[root] != root {
		root = b.parent[root]
	}
	for ord != root {
		next := b.parent[ord]
		b.parent[ord] = root
		ord = next
	}
	return root
}

func validate(pins []*circuit.Pin) error {
	for i, p := range pins {
		if err := p.Validate(); err != nil {
			return &PinError{Index: i, Reason: err.Error()}
		}
	}
	return nil
}

// Union declares pins electrically identical under name. An empty name
// means the caller does not care; a name is synthesized only when a new
// group has to be created.
//
// When any pin is already grouped, or name is already in use, the
// declaration merges into that group and its name wins. A differing explicit
// name is kept as an alias and logged in Merges. When the declaration spans
// several existing groups they collapse into the oldest one.
func (b *Builder) Union(name string, pins ...*circuit.Pin) error {
	if len(pins) == 0 {
		return ErrNoPins
	}
	if err := validate(pins); err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	survivor := -1
	touched := make(map[int]struct{})
	touch := func(ord int) {
		root := b.find(ord)
		touched[root] = struct{}{}
		if survivor < 0 || root < survivor {
			survivor = root
		}
	}
	for _, p := range pins {
		if ord, ok := b.member[p.Key()]; ok {
			touch(ord)
		}
	}
	if name != "" {
		if ord, ok := b.names[name]; ok {
			touch(ord)
		}
	}

	if survivor < 0 {
		survivor = b.newGroup(name)
	} else {
		for _, root := range sortedOrdinals(touched) {
			if root != survivor {
				b.absorb(survivor, root)
			}
		}
		g := b.groups[survivor]
		if name != "" && name != g.name {
			if _, seen := b.names[name]; !seen {
				b.names[name] = survivor
				b.merges = append(b.merges, MergeEvent{Name: name, Into: g.name, Ordinal: survivor})
			}
		}
	}

	b.add(survivor, pins)
	return nil
}

// Connect is Union with a synthesized name.
func (b *Builder) Connect(pins ...*circuit.Pin) error {
	return b.Union("", pins...)
}

// NoConnect marks each pin as intentionally unconnected. Each pin gets its
// own group; a pin that is also unioned with others ends up sharing a group
// with them, which the rule checker reports.
func (b *Builder) NoConnect(pins ...*circuit.Pin) error {
	if err := validate(pins); err != nil {
		return err
	}
	for _, p := range pins {
		p.SetType(circuit.NoConnect)
		if _, ok := b.member[p.Key()]; ok {
			continue
		}
		ord := b.newGroupNamed(unconnectedName(p), false)
		b.add(ord, []*circuit.Pin{p})
	}
	return nil
}

// ConnectBus unions the same-named signals of two buses as PREFIX_SIGNAL.
// Signals missing on either side are skipped.
func (b *Builder) ConnectBus(prefix string, x, y circuit.Bus) error {
	ys := make(map[string]*circuit.Pin)
	for _, s := range y.Signals() {
		if s.Pin != nil {
			ys[s.Name] = s.Pin
		}
	}
	for _, s := range x.Signals() {
		other, ok := ys[s.Name]
		if !ok || s.Pin == nil {
			continue
		}
		name := s.Name
		if prefix != "" {
			name = prefix + "_" + s.Name
		}
		if err := b.Union(name, s.Pin, other); err != nil {
			return fmt.Errorf("netgraph: bus signal %s: %w", s.Name, err)
		}
	}
	return nil
}

func unconnectedName(p *circuit.Pin) string {
	if p.IsPort() {
		return "unconnected-(" + p.Name() + ")"
	}
	return "unconnected-(" + p.Reference() + "-Pad" + p.Number() + ")"
}

func (b *Builder) newGroup(name string) int {
	if name != "" {
		return b.newGroupNamed(name, true)
	}
	for {
		b.counter++
		candidate := fmt.Sprintf("%s%d", b.prefix, b.counter)
		if _, taken := b.names[candidate]; !taken {
			return b.newGroupNamed(candidate, false)
		}
	}
}

func (b *Builder) newGroupNamed(name string, explicit bool) int {
	ord := len(b.groups)
	b.groups = append(b.groups, &group{
		name:     name,
		explicit: explicit,
		keys:     make(map[string]struct{}),
	})
	b.parent = append(b.parent, ord)
	if _, taken := b.names[name]; !taken {
		b.names[name] = ord
	}
	return ord
}

func (b *Builder) absorb(survivor, root int) {
	dst, src := b.groups[survivor], b.groups[root]
	b.parent[root] = survivor
	b.merges = append(b.merges, MergeEvent{Name: src.name, Into: dst.name, Ordinal: survivor})
	b.add(survivor, src.pins)
	src.pins = nil
	src.keys = nil
}

// add appends pins to the group, skipping identities it already holds.
func (b *Builder) add(ord int, pins []*circuit.Pin) {
	g := b.groups[ord]
	for _, p := range pins {
		key := p.Key()
		if _, dup := g.keys[key]; dup {
			continue
		}
		g.keys[key] = struct{}{}
		g.pins = append(g.pins, p)
		b.member[key] = ord
	}
}

// Nets returns the live groups in ordinal order.
func (b *Builder) Nets() []Net {
	nets := make([]Net, 0, len(b.groups))
	for ord, g := range b.groups {
		if b.find(ord) != ord {
			continue
		}
		nets = append(nets, Net{
			Name:     g.name,
			Ordinal:  ord,
			Explicit: g.explicit,
			Pins:     append([]*circuit.Pin(nil), g.pins...),
		})
	}
	return nets
}

// Net returns the group known by name, following aliases left by merges.
func (b *Builder) Net(name string) (Net, bool) {
	ord, ok := b.names[name]
	if !ok {
		return Net{}, false
	}
	root := b.find(ord)
	g := b.groups[root]
	return Net{Name: g.name, Ordinal: root, Explicit: g.explicit, Pins: append([]*circuit.Pin(nil), g.pins...)}, true
}

// Lookup returns the name of the net containing pin.
func (b *Builder) Lookup(p *circuit.Pin) (string, bool) {
	if p == nil {
		return "", false
	}
	ord, ok := b.member[p.Key()]
	if !ok {
		return "", false
	}
	return b.groups[b.find(ord)].name, true
}

// Alias resolves a name, current or absorbed, to the ordinal of the net that
// carries it now.
func (b *Builder) Alias(name string) (int, bool) {
	ord, ok := b.names[name]
	if !ok {
		return 0, false
	}
	return b.find(ord), true
}

// Merges returns the merge log in the order the merges happened.
func (b *Builder) Merges() []MergeEvent {
	return append([]MergeEvent(nil), b.merges...)
}

func sortedOrdinals(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for ord := range set {
		out = append(out, ord)
	}
	sort.Ints(out)
	return out
}
