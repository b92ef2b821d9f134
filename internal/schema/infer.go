package schema

import (
	"strings"

	"outreach/internal/table"
)

// ColumnMap is the per-table resolution of canonical field → actual column
// label. Unresolved fields are simply absent from the map. A ColumnMap is
// produced fresh per table and never persisted.
type ColumnMap map[Field]string

// Get returns the resolved label for a field, or "" when unresolved.
func (m ColumnMap) Get(f Field) string { return m[f] }

// Resolved reports whether the field resolved to a real column.
func (m ColumnMap) Resolved(f Field) bool { return m[f] != "" }

// normalizeLabel lower-cases and collapses all internal whitespace runs to a
// single space. Both aliases and real column labels go through this before
// comparison.
func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// InferColumnMap resolves each canonical field to the best-matching column
// of t, using the default aliases merged with extra.
//
// For each field, in FieldOrder:
//  1. exact match: the first alias (alias order) whose normalized form
//     equals a normalized column label wins;
//  2. substring fallback: the first column (table column order) whose
//     normalized label contains any alias wins.
//
// An empty or zero-row table resolves every field to absent, without error.
// Two columns can both satisfy a substring match; first-in-table-order is
// the tie-break and is pinned by tests. Short aliases can also land on
// unintended columns ("cell" inside "cancelled visits"); that looseness is
// inherited behavior, not an accident to fix here.
func InferColumnMap(t *table.Table, extra AliasTable) ColumnMap {
	aliases := MergeAliases(extra)
	mapping := make(ColumnMap, len(FieldOrder))
	if t.Empty() {
		return mapping
	}

	type col struct {
		norm, orig string
	}
	cols := make([]col, 0, len(t.Columns))
	normToOrig := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		n := normalizeLabel(c)
		cols = append(cols, col{norm: n, orig: c})
		if _, dup := normToOrig[n]; !dup {
			normToOrig[n] = c
		}
	}

	for _, field := range FieldOrder {
		cand := aliases[field]

		// Phase 1: exact.
		found := ""
		for _, a := range cand {
			if orig, ok := normToOrig[normalizeLabel(a)]; ok {
				found = orig
				break
			}
		}

		// Phase 2: substring, only when no exact hit.
		if found == "" {
			for _, c := range cols {
				for _, a := range cand {
					n := normalizeLabel(a)
					if n != "" && strings.Contains(c.norm, n) {
						found = c.orig
						break
					}
				}
				if found != "" {
					break
				}
			}
		}

		if found != "" {
			mapping[field] = found
		}
	}
	return mapping
}
