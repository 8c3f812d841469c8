// Package hostlist is the Wires-X destination catalog: the set of
// reflectors a gateway can offer via DX/ALL/SEARCH/CATEGORY/CONNECT,
// as distinct from the DGIDEntry table that actually holds links.
// This file holds the parsed result and the lookup/search operations
// the Wires-X engine needs, grounded on the teacher's
// wiresx.TalkGroupRegistry; loader.go reads the backing hosts JSON and
// FCS-rooms files into it.
package hostlist

import (
	"sort"
	"strings"
)

// Kind distinguishes the reflector network family, spec.md §3 "Reflector".
type Kind int

const (
	KindYSF Kind = iota
	KindFCS
)

// Entry is one selectable Wires-X destination.
type Entry struct {
	ID          string // 5-digit id
	Name        string // 16 chars, space-padded
	Description string // 14 chars, space-padded
	Count       string // 3-digit peer count, "000" when unknown
	Address     string
	Port        int
	Kind        Kind
	WiresX      bool // whether forward-Wires-X passthrough applies
}

// Registry is a read-mostly catalog, safe for concurrent lookups once
// loaded; Reload swaps the slice under no lock because the owning loop
// is the only mutator (spec.md §5 shared-resource policy).
type Registry struct {
	entries []Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Reload replaces the catalog contents, e.g. after an hourly hosts-file
// re-read (spec.md's supplemented host-list hot-reload, SPEC_FULL.md).
func (r *Registry) Reload(entries []Entry) { r.entries = entries }

// All returns every entry, in load order.
func (r *Registry) All() []Entry { return r.entries }

// Count returns the number of catalog entries.
func (r *Registry) Count() int { return len(r.entries) }

// Page returns up to count entries starting at start.
func (r *Registry) Page(start, count int) []Entry {
	if start < 0 || start >= len(r.entries) {
		return nil
	}
	end := start + count
	if end > len(r.entries) {
		end = len(r.entries)
	}
	return r.entries[start:end]
}

// FindByID returns the entry with the given 5-digit id, or nil.
func (r *Registry) FindByID(id string) *Entry {
	for i := range r.entries {
		if r.entries[i].ID == id {
			return &r.entries[i]
		}
	}
	return nil
}

// Search returns entries whose name starts with the (case-insensitive,
// trimmed) needle, sorted by name.
func (r *Registry) Search(needle string) []Entry {
	needle = strings.ToUpper(strings.TrimSpace(needle))
	if needle == "" {
		return nil
	}
	var out []Entry
	for _, e := range r.entries {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(e.Name)), needle) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.TrimSpace(out[i].Name) < strings.TrimSpace(out[j].Name)
	})
	return out
}

// FilterByIDs returns the entries (in catalog order) matching any of ids.
func (r *Registry) FilterByIDs(ids []string) []Entry {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Entry
	for _, e := range r.entries {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
