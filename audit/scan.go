package audit

import (
	"os"
	"sort"

	"github.com/spf13/afero"

	"github.com/luinbytes/image-auditor/hashing"
	"github.com/luinbytes/image-auditor/logging"
)

// FileRecord describes one file discovered under the source tree. The
// digest is filled in during the exact pass; records stay immutable
// afterwards and are discarded when the run ends.
type FileRecord struct {
	Path      string
	Size      int64
	MediaType string
	Digest    string
}

// scanTree walks the source tree once and builds the in-memory file list
// both passes enumerate. The list is sorted by path so results do not
// depend on the filesystem's directory enumeration order. Walk errors on
// individual entries are logged and skipped; they never abort the scan.
func scanTree(fs afero.Fs, root string) ([]FileRecord, error) {
	var records []FileRecord

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.Get().Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		records = append(records, FileRecord{
			Path:      path,
			Size:      info.Size(),
			MediaType: hashing.MediaType(fs, path),
		})

		if len(records)%100 == 0 {
			logging.Get().Info().Int("files", len(records)).Msg("scanning source tree")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// hasImageFiles reports whether any discovered file has a known image
// extension. The similarity pass only runs when this is true.
func hasImageFiles(records []FileRecord) bool {
	for _, rec := range records {
		if hashing.IsImagePath(rec.Path) {
			return true
		}
	}
	return false
}

// mediaTypeCounts tallies the scanned files by sniffed MIME type for the
// run report.
func mediaTypeCounts(records []FileRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.MediaType]++
	}
	return counts
}
