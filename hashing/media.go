package hashing

import (
	"io"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

// headerSize is enough bytes for filetype to recognize every format it
// knows about.
const headerSize = 261

// MediaType sniffs the file's MIME type from its leading bytes, e.g.
// "image/jpeg". Unrecognized content is reported as "unknown". This is
// informational only; it never gates which files get processed.
func MediaType(fs afero.Fs, path string) string {
	file, err := fs.Open(path)
	if err != nil {
		return "unknown"
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "unknown"
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "unknown"
	}

	return kind.MIME.Value
}
