// Package audit finds exact and near-duplicate images under a source
// tree and materializes a consolidated, deduplicated dataset with full
// traceability indexes.
//
// One run is single-threaded and synchronous. Concurrent runs against
// the same audit directory are unsupported: the sequence counter is per
// process and the index files are plain append-only text with no
// cross-process coordination. A run stopped mid-way leaves partial
// output; re-running is the recovery path, and the append-only indexes
// will then contain the earlier run's entries as well.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/luinbytes/image-auditor/cluster"
	"github.com/luinbytes/image-auditor/hashing"
	"github.com/luinbytes/image-auditor/logging"
)

const (
	exactDirName        = "exact_duplicates"
	similarDirName      = "similar_files"
	consolidatedDirName = "consolidated_files"
)

// Organizer runs the audit over one source tree.
type Organizer struct {
	fs        afero.Fs
	threshold int
}

// Result reports what one run found and produced. UniqueFiles is the
// consolidated unique count: the final counter value minus one.
type Result struct {
	FilesScanned  int
	ExactGroups   int
	SimilarGroups int
	UniqueFiles   int
	MediaTypes    map[string]int
}

// New returns an Organizer using the given filesystem and Hamming
// distance threshold for the similarity pass.
func New(fs afero.Fs, threshold int) *Organizer {
	return &Organizer{fs: fs, threshold: threshold}
}

// Run audits sourceDir and materializes the three output views under
// outputRoot. Unreadable source files are skipped with a warning; any
// failure writing output aborts the run, since a silently dropped copy
// or index line would corrupt the consolidated directory's guarantees.
func (o *Organizer) Run(sourceDir, outputRoot string) (*Result, error) {
	log := logging.Get()

	exactDir := filepath.Join(outputRoot, exactDirName)
	similarDir := filepath.Join(outputRoot, similarDirName)
	consolidatedDir := filepath.Join(outputRoot, consolidatedDirName)

	for _, dir := range []string{exactDir, similarDir, consolidatedDir} {
		if err := o.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	records, err := scanTree(o.fs, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", sourceDir, err)
	}

	log.Info().Int("files", len(records)).Msg("finding exact duplicates")

	// Digest -> paths, with first-seen digest order kept explicitly.
	byDigest := make(map[string][]string)
	var digestOrder []string
	hashed := records[:0]
	for _, rec := range records {
		digest, err := hashing.ContentDigest(o.fs, rec.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", rec.Path).Msg("skipping unreadable file")
			continue
		}
		rec.Digest = digest
		if _, seen := byDigest[digest]; !seen {
			digestOrder = append(digestOrder, digest)
		}
		byDigest[digest] = append(byDigest[digest], rec.Path)
		hashed = append(hashed, rec)
	}
	records = hashed

	counter := NewCounter()
	var mapping []ConsolidatedEntry
	inExactGroup := make(map[string]bool)

	// EXACT_MATERIALIZE: one numbered directory per duplicate group, in
	// first-seen-digest order.
	groupNo := 0
	for _, digest := range digestOrder {
		paths := byDigest[digest]
		if len(paths) < 2 {
			continue
		}
		groupNo++

		groupDir := filepath.Join(exactDir, fmt.Sprintf("group_%d", groupNo))
		if err := o.fs.MkdirAll(groupDir, 0755); err != nil {
			return nil, fmt.Errorf("create group directory %s: %w", groupDir, err)
		}

		// The group's first-seen member goes forward into the
		// consolidated set under the next sequential name.
		newName := counter.Name(filepath.Ext(paths[0]))
		if err := o.copyFile(paths[0], filepath.Join(consolidatedDir, newName)); err != nil {
			return nil, err
		}
		if err := appendDuplicatesBlock(o.fs, consolidatedDir, newName, digest, paths); err != nil {
			return nil, err
		}
		mapping = append(mapping, ConsolidatedEntry{Name: newName, Originals: paths})

		for j, path := range paths {
			inExactGroup[path] = true
			dest, err := o.collisionSafePath(groupDir, path, "_dup", j)
			if err != nil {
				return nil, err
			}
			if err := o.copyFile(path, dest); err != nil {
				return nil, err
			}
			if err := appendGroupRecord(o.fs, groupDir, filepath.Base(dest), path); err != nil {
				return nil, err
			}
		}
	}
	log.Info().Int("groups", groupNo).Msg("exact duplicate groups materialized")

	// CONSOLIDATE_UNIQUES: every remaining digest has exactly one path.
	log.Info().Msg("copying unique files to consolidated directory")
	for _, digest := range digestOrder {
		paths := byDigest[digest]
		if len(paths) != 1 {
			continue
		}
		newName := counter.Name(filepath.Ext(paths[0]))
		if err := o.copyFile(paths[0], filepath.Join(consolidatedDir, newName)); err != nil {
			return nil, err
		}
		mapping = append(mapping, ConsolidatedEntry{Name: newName, Originals: paths})
	}

	if err := writeMasterIndex(o.fs, consolidatedDir, mapping); err != nil {
		return nil, err
	}

	result := &Result{
		FilesScanned: len(records),
		ExactGroups:  groupNo,
		UniqueFiles:  counter.Assigned(),
		MediaTypes:   mediaTypeCounts(records),
	}

	// SIMILARITY_SCAN runs only when the tree contains at least one file
	// with an image extension. Exact-group members are excluded, so the
	// two partitions never overlap.
	if hasImageFiles(records) {
		log.Info().Msg("finding similar images")

		var entries []cluster.Entry
		for _, rec := range records {
			if inExactGroup[rec.Path] {
				continue
			}
			fingerprint, err := hashing.Fingerprint(o.fs, rec.Path)
			if err != nil {
				log.Warn().Err(err).Str("path", rec.Path).Msg("not decodable as an image, excluded from similarity analysis")
				continue
			}
			entries = append(entries, cluster.Entry{Hash: fingerprint, Path: rec.Path})
			if len(entries)%50 == 0 {
				log.Info().Int("images", len(entries)).Msg("fingerprinting images")
			}
		}

		groups := cluster.Groups(entries, o.threshold)
		log.Info().Int("groups", len(groups)).Msg("similar image groups found")

		for i, group := range groups {
			groupDir := filepath.Join(similarDir, fmt.Sprintf("similar_group_%d", i+1))
			if err := o.fs.MkdirAll(groupDir, 0755); err != nil {
				return nil, fmt.Errorf("create group directory %s: %w", groupDir, err)
			}
			for j, path := range group {
				dest, err := o.collisionSafePath(groupDir, path, "_similar", j)
				if err != nil {
					return nil, err
				}
				if err := o.copyFile(path, dest); err != nil {
					return nil, err
				}
				if err := appendGroupRecord(o.fs, groupDir, filepath.Base(dest), path); err != nil {
					return nil, err
				}
			}
		}
		result.SimilarGroups = len(groups)
	}

	log.Info().
		Int("exact_groups", result.ExactGroups).
		Int("similar_groups", result.SimilarGroups).
		Int("unique_files", result.UniqueFiles).
		Msg("audit complete")

	return result, nil
}

// collisionSafePath places filepath.Base(src) inside dir, appending a
// duplicate-index suffix before the extension when that name is already
// taken by an earlier member of the same group.
func (o *Organizer) collisionSafePath(dir, src, suffix string, index int) (string, error) {
	base := filepath.Base(src)
	dest := filepath.Join(dir, base)

	exists, err := afero.Exists(o.fs, dest)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", dest, err)
	}
	if exists {
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		dest = filepath.Join(dir, fmt.Sprintf("%s%s%d%s", name, suffix, index, ext))
	}
	return dest, nil
}

// copyFile copies src to dst, preserving the source's permission bits
// and modification time.
func (o *Organizer) copyFile(src, dst string) error {
	info, err := o.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := o.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := o.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if err := o.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		logging.Get().Debug().Err(err).Str("path", dst).Msg("could not preserve modification time")
	}
	return nil
}
