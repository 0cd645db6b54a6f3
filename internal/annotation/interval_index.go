package annotation

import "sort"

// intervalEntry is one (begin, end) -> id record in the index.
type intervalEntry struct {
	begin, end int
	id         TrackID
}

// intervalIndex is a range index over track frame ranges supporting
// "which tracks overlap [a, b]" queries. Entries are kept sorted by
// (begin, id) so a query can binary-search past every entry starting
// after the window and scan only the prefix.
//
// The store guarantees at most one entry per track; updates replace the
// entry rather than accumulating.
type intervalIndex struct {
	entries []intervalEntry
}

// insert adds or replaces the entry for id.
func (ix *intervalIndex) insert(id TrackID, begin, end int) {
	ix.remove(id)
	i := sort.Search(len(ix.entries), func(i int) bool {
		e := ix.entries[i]
		return e.begin > begin || (e.begin == begin && e.id >= id)
	})
	ix.entries = append(ix.entries, intervalEntry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = intervalEntry{begin: begin, end: end, id: id}
}

// remove deletes the entry for id. Reports whether an entry existed.
func (ix *intervalIndex) remove(id TrackID) bool {
	for i, e := range ix.entries {
		if e.id == id {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			return true
		}
	}
	return false
}

// overlapping appends the ids of every entry intersecting [begin, end]
// (inclusive on both sides) to dst and returns it.
func (ix *intervalIndex) overlapping(begin, end int, dst []TrackID) []TrackID {
	// Entries sorted by begin: everything past the first entry with
	// begin > end cannot overlap.
	limit := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].begin > end
	})
	for _, e := range ix.entries[:limit] {
		if e.end >= begin {
			dst = append(dst, e.id)
		}
	}
	return dst
}

// len returns the number of indexed tracks.
func (ix *intervalIndex) len() int { return len(ix.entries) }
