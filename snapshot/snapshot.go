// Package snapshot builds the immutable Content values that shared environments,
// ledger entries and suggestions carry, and merges a proposal into current content.
// Nothing in this package touches storage.
package snapshot

import (
	"bytes"
	"encoding/json"

	"lexshare/models"

	"github.com/tidwall/gjson"
)

// WorkingState is the user's local research state a snapshot is cut from.
type WorkingState struct {
	Dossiers    []json.RawMessage `json:"dossiers"`
	QuickNorms  []json.RawMessage `json:"quickNorms"`
	Aliases     []json.RawMessage `json:"customAliases"`
	Annotations []json.RawMessage `json:"annotations"`
	Highlights  []json.RawMessage `json:"highlights"`
}

// Selection lists the item identities to keep, per category.
type Selection struct {
	Dossiers    []string `json:"dossiers"`
	QuickNorms  []string `json:"quickNorms"`
	Aliases     []string `json:"customAliases"`
	Annotations []string `json:"annotations"`
	Highlights  []string `json:"highlights"`
}

// Options carries the environment's inclusion flags.
type Options struct {
	IncludeNotes      bool
	IncludeHighlights bool
}

// ItemKey returns the identity of a content item: its "id" field when present,
// otherwise the compacted JSON of the whole item.
func ItemKey(item json.RawMessage) string {
	id := gjson.GetBytes(item, "id")
	if id.Exists() && id.Type != gjson.Null {
		return id.String()
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, item); err != nil {
		return string(item)
	}
	return buf.String()
}

// Build keeps the selected items of every category in source order.
// Annotations and highlights are dropped entirely when the matching flag is off.
func Build(ws WorkingState, sel Selection, opts Options) models.Content {
	c := models.Content{
		Dossiers:   pick(ws.Dossiers, sel.Dossiers),
		QuickNorms: pick(ws.QuickNorms, sel.QuickNorms),
		Aliases:    pick(ws.Aliases, sel.Aliases),
	}
	if opts.IncludeNotes {
		c.Annotations = pick(ws.Annotations, sel.Annotations)
	}
	if opts.IncludeHighlights {
		c.Highlights = pick(ws.Highlights, sel.Highlights)
	}
	return Gate(c, opts)
}

// Gate returns a copy of c with annotations/highlights removed when the flags forbid them.
func Gate(c models.Content, opts Options) models.Content {
	out := models.Content{
		Dossiers:   clone(c.Dossiers),
		QuickNorms: clone(c.QuickNorms),
		Aliases:    clone(c.Aliases),
	}
	if opts.IncludeNotes {
		out.Annotations = clone(c.Annotations)
	}
	if opts.IncludeHighlights {
		out.Highlights = clone(c.Highlights)
	}
	return out
}

// ForSuggestion keeps only the categories a suggestion may propose.
func ForSuggestion(c models.Content) models.Content {
	return models.Content{
		Dossiers:   clone(c.Dossiers),
		QuickNorms: clone(c.QuickNorms),
		Aliases:    clone(c.Aliases),
	}
}

// IsEmpty reports whether dossiers, quick-norms and aliases are all empty.
func IsEmpty(c models.Content) bool {
	return len(c.Dossiers) == 0 && len(c.QuickNorms) == 0 && len(c.Aliases) == 0
}

// Count returns the number of items across the three publishable categories.
func Count(c models.Content) int {
	return len(c.Dossiers) + len(c.QuickNorms) + len(c.Aliases)
}

func pick(items []json.RawMessage, ids []string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(ids))
	if len(ids) == 0 {
		return out
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for _, item := range items {
		if _, ok := wanted[ItemKey(item)]; ok {
			out = append(out, copyItem(item))
		}
	}
	return out
}

// clone deep-copies a category so a new Content never shares backing arrays with an old one.
func clone(items []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, copyItem(item))
	}
	return out
}

func copyItem(item json.RawMessage) json.RawMessage {
	cp := make(json.RawMessage, len(item))
	copy(cp, item)
	return cp
}
