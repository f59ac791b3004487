package column

import "github.com/jac-archive/jac/limits"

// dictionary deduplicates strings in first-occurrence order, grounded on
// the teacher's collision.Tracker map+ordered-list pattern (hash/name
// tracking for metric names), repurposed here for the string-substream
// dictionary decision rather than collision detection.
type dictionary struct {
	indexOf map[string]int
	entries []string
}

func newDictionary() *dictionary {
	return &dictionary{indexOf: make(map[string]int)}
}

// indexFor returns s's dictionary index, assigning the next index in
// first-occurrence order if s has not been seen before.
func (d *dictionary) indexFor(s string) int {
	if idx, ok := d.indexOf[s]; ok {
		return idx
	}

	idx := len(d.entries)
	d.indexOf[s] = idx
	d.entries = append(d.entries, s)

	return idx
}

func (d *dictionary) count() int { return len(d.entries) }

// shouldUseDictionary applies spec §4.4's heuristic: build a dictionary iff
// distinct_count <= min(max_dict_entries_per_field, max(2, present_count/4)).
func shouldUseDictionary(distinctCount, presentCount int, lim limits.Limits) bool {
	ceiling := presentCount / 4
	if ceiling < 2 {
		ceiling = 2
	}

	if lim.MaxDictEntriesPerField < ceiling {
		ceiling = lim.MaxDictEntriesPerField
	}

	return distinctCount <= ceiling
}
