package hashing

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/spf13/afero"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageExtensions is the cheap extension pre-check for the similarity
// pass. Content is never sniffed here; a lying extension just means a
// failed decode later, which excludes the file from similarity analysis.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether the path has a known image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Fingerprint decodes the file as a raster image and returns its 64-bit
// DCT perception hash. Visually similar images yield fingerprints with a
// small Hamming distance. A decode failure (not an image, corrupt data,
// unsupported format) is returned as an error; callers treat it as "no
// fingerprint", not as a fatal condition.
func Fingerprint(fs afero.Fs, path string) (*goimagehash.ImageHash, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	return goimagehash.PerceptionHash(img)
}

// Distance returns the Hamming distance between two fingerprints, or -1
// if they cannot be compared (nil or different hash kinds). It is
// symmetric, and Distance(h, h) == 0 for any fingerprint.
func Distance(a, b *goimagehash.ImageHash) int {
	if a == nil || b == nil {
		return -1
	}
	dist, err := a.Distance(b)
	if err != nil {
		return -1
	}
	return dist
}
