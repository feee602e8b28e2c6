package snapshot

import (
	"encoding/json"
	"fmt"

	"lexshare/models"
)

// ErrUnknownMergeMode is returned by Merge for any mode other than merge or replace.
type ErrUnknownMergeMode struct {
	Mode models.MergeMode
}

func (e *ErrUnknownMergeMode) Error() string {
	return fmt.Sprintf("unknown merge mode '%s', expected 'merge' or 'replace'", e.Mode)
}

// Merge combines proposed into current and returns a new Content.
//
// merge: each category keeps the current items in order, followed by proposed items
// whose identity is not present yet.
// replace: a non-empty proposed category replaces the current one; empty proposed
// categories leave current items in place.
//
// Annotations and highlights always come from current, suggestions never carry them.
func Merge(current, proposed models.Content, mode models.MergeMode) (models.Content, error) {
	out := models.Content{
		Annotations: clone(current.Annotations),
		Highlights:  clone(current.Highlights),
	}
	switch mode {
	case models.MergeUnion:
		out.Dossiers = union(current.Dossiers, proposed.Dossiers)
		out.QuickNorms = union(current.QuickNorms, proposed.QuickNorms)
		out.Aliases = union(current.Aliases, proposed.Aliases)
	case models.MergeReplace:
		out.Dossiers = overwrite(current.Dossiers, proposed.Dossiers)
		out.QuickNorms = overwrite(current.QuickNorms, proposed.QuickNorms)
		out.Aliases = overwrite(current.Aliases, proposed.Aliases)
	default:
		return models.Content{}, &ErrUnknownMergeMode{Mode: mode}
	}
	return out, nil
}

func union(current, proposed []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(current)+len(proposed))
	seen := make(map[string]struct{}, len(current)+len(proposed))
	for _, group := range [][]json.RawMessage{current, proposed} {
		for _, item := range group {
			key := ItemKey(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, copyItem(item))
		}
	}
	return out
}

func overwrite(current, proposed []json.RawMessage) []json.RawMessage {
	if len(proposed) == 0 {
		return clone(current)
	}
	return union(nil, proposed)
}
