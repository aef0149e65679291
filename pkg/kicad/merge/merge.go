// Package merge reconciles generated entities with a previously written
// KiCad document.
//
// Entities are matched by UUID. A matched node is updated in place, a new
// entity is appended from its template and an existing node that no entity
// claims is dropped. Groups covering generated entities are rebuilt on every
// run. Everything else in the document is left as it was, so edits made in
// KiCad survive regeneration.
package merge

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kibuild/pkg/kicad/sexp/kicadsexp"
)

// ErrLocked is returned when KiCad holds a lock on the document.
var ErrLocked = errors.New("document is open in KiCad")

// Entity is a generated document node with a stable identity.
type Entity interface {
	UUID() string
	// Template returns a fresh node for an entity that is not in the
	// document yet.
	Template() (*kicadsexp.List, error)
	// Update writes the entity's fields into node. It must be idempotent.
	Update(node *kicadsexp.List) error
}

// TemplateError reports an entity whose template could not be produced.
// The merge is aborted.
type TemplateError struct {
	UUID string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("merge: template for %s: %v", e.UUID, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Group is a named collection of entity UUIDs. An empty UUID reuses the one
// already in the document, or a new one.
type Group struct {
	Name    string
	UUID    string
	Members []string
}

// Spec describes the document grammar being merged.
type Spec struct {
	Root       string                 // root keyword, e.g. "kicad_pcb"
	EntityKind string                 // entity keyword, e.g. "footprint"
	Empty      func() *kicadsexp.List // minimal valid document
	Groups     []Group
}

// Result is a merged document and the non-fatal problems met on the way.
type Result struct {
	Doc      *kicadsexp.List
	Warnings []string
	Added    int
	Updated  int
	Removed  int
}

// Merge applies entities to the existing document bytes. Missing or
// unparsable input starts from spec.Empty; the latter adds a warning.
func Merge(existing []byte, spec Spec, entities []Entity) (*Result, error) {
	res := &Result{}
	res.Doc = parseExisting(existing, spec, res)

	known := make(map[string]struct{})
	index := make(map[string]*kicadsexp.List)
	for _, it := range res.Doc.Items() {
		node, ok := it.(*kicadsexp.List)
		if !ok || node.Key() != spec.EntityKind {
			continue
		}
		id, err := sexp.GetUUID(node)
		if err != nil {
			continue
		}
		known[string(id)] = struct{}{}
		if _, dup := index[string(id)]; !dup {
			index[string(id)] = node
		}
	}

	claimed := make(map[*kicadsexp.List]struct{})
	var added []*kicadsexp.List
	for _, e := range entities {
		id := e.UUID()
		known[id] = struct{}{}
		if node, ok := index[id]; ok {
			if _, taken := claimed[node]; !taken {
				if err := e.Update(node); err != nil {
					return nil, fmt.Errorf("merge: update %s: %w", id, err)
				}
				claimed[node] = struct{}{}
				res.Updated++
				continue
			}
		}
		node, err := e.Template()
		if err != nil {
			return nil, &TemplateError{UUID: id, Err: err}
		}
		if err := e.Update(node); err != nil {
			return nil, fmt.Errorf("merge: update %s: %w", id, err)
		}
		claimed[node] = struct{}{}
		added = append(added, node)
	}

	res.Doc.Filter(func(s kicadsexp.Sexp) bool {
		node, ok := s.(*kicadsexp.List)
		if !ok || node.Key() != spec.EntityKind {
			return true
		}
		if _, ok := claimed[node]; ok {
			return true
		}
		if _, err := sexp.GetUUID(node); err != nil {
			return true
		}
		res.Removed++
		return false
	})

	insertAt := lastIndex(res.Doc, spec.EntityKind) + 1
	if insertAt == 0 {
		insertAt = res.Doc.Len()
	}
	for i, node := range added {
		res.Doc.Insert(insertAt+i, node)
	}
	res.Added = len(added)

	rebuildGroups(res.Doc, spec.Groups, known)
	return res, nil
}

func parseExisting(existing []byte, spec Spec, res *Result) *kicadsexp.List {
	if len(bytes.TrimSpace(existing)) == 0 {
		return spec.Empty()
	}
	root, err := kicadsexp.ParseRoot(bytes.NewReader(existing))
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("existing %s is unreadable, starting over: %v", spec.Root, err))
		return spec.Empty()
	}
	if root.Key() != spec.Root {
		res.Warnings = append(res.Warnings, fmt.Sprintf("existing document is a %q, not %q, starting over", root.Key(), spec.Root))
		return spec.Empty()
	}
	return root
}

func lastIndex(l *kicadsexp.List, key string) int {
	idx := -1
	for i, it := range l.Items() {
		if sub, ok := it.(*kicadsexp.List); ok && sub.Key() == key {
			idx = i
		}
	}
	return idx
}

// rebuildGroups drops every group that is ours (same name as a current
// group, or holding an entity UUID we know) and writes the current groups
// where the first dropped one was.
func rebuildGroups(doc *kicadsexp.List, groups []Group, known map[string]struct{}) {
	names := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		names[g.Name] = struct{}{}
	}

	oldIDs := make(map[string]string)
	pos := -1
	i := -1
	doc.Filter(func(s kicadsexp.Sexp) bool {
		i++
		node, ok := s.(*kicadsexp.List)
		if !ok || node.Key() != "group" {
			return true
		}
		name, _ := sexp.GetString(node, 1)
		_, ours := names[name]
		if !ours {
			ours = membersIntersect(node, known)
		}
		if !ours {
			return true
		}
		if id, err := sexp.GetUUID(node); err == nil {
			if _, seen := oldIDs[name]; !seen {
				oldIDs[name] = string(id)
			}
		}
		if pos < 0 {
			pos = i
		}
		return false
	})
	if pos < 0 || pos > doc.Len() {
		pos = doc.Len()
	}

	for k, g := range groups {
		id := g.UUID
		if id == "" {
			id = oldIDs[g.Name]
		}
		if id == "" {
			id = uuid.NewString()
		}
		members := kicadsexp.Node("members")
		for _, m := range g.Members {
			members.Append(kicadsexp.String(m))
		}
		doc.Insert(pos+k, kicadsexp.Node("group", kicadsexp.String(g.Name), sexp.UUIDNode(id), members))
	}
}

func membersIntersect(group *kicadsexp.List, known map[string]struct{}) bool {
	members, ok := sexp.FindNode(group, "members")
	if !ok {
		return false
	}
	for _, m := range sexp.GetListItems(members) {
		if _, ok := known[m.String()]; ok {
			return true
		}
	}
	return false
}
