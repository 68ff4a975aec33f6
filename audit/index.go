package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	duplicatesIndexName = "duplicates_index.txt"
	masterIndexName     = "master_file_index.txt"
	groupRecordName     = "original_paths.txt"
)

// ConsolidatedEntry maps one consolidated filename to the original
// path(s) it stands for: all members of an exact-duplicate group, or a
// single unique file.
type ConsolidatedEntry struct {
	Name      string
	Originals []string
}

// appendText opens path for append (creating it if needed) and writes
// text. Existing content is never truncated, so re-running into a
// populated audit directory extends the indexes rather than erasing them.
func appendText(fs afero.Fs, path, text string) error {
	file, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(text); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}

// appendGroupRecord adds one "destination => original" line to the
// group's original_paths.txt.
func appendGroupRecord(fs afero.Fs, groupDir, destName, originalPath string) error {
	line := fmt.Sprintf("%s => %s\n", destName, originalPath)
	return appendText(fs, filepath.Join(groupDir, groupRecordName), line)
}

// appendDuplicatesBlock records one exact-duplicate group in the global
// duplicates index: the consolidated filename, the shared digest, and
// every original path.
func appendDuplicatesBlock(fs afero.Fs, consolidatedDir, newName, digest string, paths []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", newName)
	fmt.Fprintf(&b, "Hash: %s\n", digest)
	b.WriteString("Duplicates:\n")
	for _, path := range paths {
		fmt.Fprintf(&b, "  - %s\n", path)
	}
	b.WriteString("\n")
	return appendText(fs, filepath.Join(consolidatedDir, duplicatesIndexName), b.String())
}

// writeMasterIndex rewrites the master index from scratch with every
// consolidated filename and its originating path(s), in consolidation
// order. Unlike the duplicates index this file reflects only the current
// run.
func writeMasterIndex(fs afero.Fs, consolidatedDir string, entries []ConsolidatedEntry) error {
	var b strings.Builder
	b.WriteString("# Master File Index\n")
	b.WriteString("# New Filename => Original File(s)\n\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s:\n", entry.Name)
		for _, orig := range entry.Originals {
			fmt.Fprintf(&b, "  - %s\n", orig)
		}
		b.WriteString("\n")
	}

	path := filepath.Join(consolidatedDir, masterIndexName)
	if err := afero.WriteFile(fs, path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
