// Package cluster groups perceptual fingerprints into similarity groups.
package cluster

import (
	"github.com/corona10/goimagehash"

	"github.com/luinbytes/image-auditor/hashing"
)

// Entry pairs a perceptual fingerprint with the file path it came from.
type Entry struct {
	Hash *goimagehash.ImageHash
	Path string
}

// Groups partitions entries into groups of similar paths using a greedy
// seed rule: entries are processed in input order, each not-yet-assigned
// entry seeds a new group, and every later unassigned entry within
// threshold Hamming distance OF THE SEED joins it. This is single-link to
// the seed, not transitive closure: two entries each within threshold of
// the seed may be further than threshold from each other and still share
// a group. The result is deterministic for a fixed input order.
//
// Groups of size 1 are discarded.
func Groups(entries []Entry, threshold int) [][]string {
	var groups [][]string
	assigned := make([]bool, len(entries))

	for i, seed := range entries {
		if assigned[i] {
			continue
		}

		group := []string{seed.Path}
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] {
				continue
			}
			dist := hashing.Distance(seed.Hash, entries[j].Hash)
			if dist >= 0 && dist <= threshold {
				group = append(group, entries[j].Path)
				assigned[j] = true
			}
		}

		if len(group) > 1 {
			groups = append(groups, group)
			assigned[i] = true
		}
	}

	return groups
}
