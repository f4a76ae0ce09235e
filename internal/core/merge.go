package core

import (
	"sort"

	"github.com/kilupskalvis/dbdiff/internal/models"
)

// MergeColumnNames unions two ordered column lists position by position:
// at each index a's name is emitted before b's, skipping names already seen.
// Columns first introduced by a keep their place ahead of columns b adds.
func MergeColumnNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]string, 0, max(len(a), len(b)))

	emit := func(name string) {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}

	for i := 0; i < max(len(a), len(b)); i++ {
		if i < len(a) {
			emit(a[i])
		}
		if i < len(b) {
			emit(b[i])
		}
	}

	return merged
}

// MergePrimaryKeys returns the deduplicated union of both tables' row keys in
// ascending key order. Either table may be nil.
func MergePrimaryKeys(a, b *models.TableSnapshot) []models.PrimaryKey {
	seen := make(map[string]bool)
	var keys []models.PrimaryKey

	for _, ts := range []*models.TableSnapshot{a, b} {
		if ts == nil {
			continue
		}
		for i := range ts.Rows {
			pk := ts.Rows[i].PrimaryKey
			k := pk.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, pk)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})

	if keys == nil {
		keys = []models.PrimaryKey{}
	}
	return keys
}
