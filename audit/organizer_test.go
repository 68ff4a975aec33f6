package audit

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	if err := afero.WriteFile(fs, path, content, 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
}

// writeTestPNG writes a 128x128 grayscale pattern so perceptual hashing
// has real structure to work with.
func writeTestPNG(t *testing.T, fs afero.Fs, path string, pixel func(x, y int) uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			img.SetGray(x, y, color.Gray{Y: pixel(x, y)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	writeFile(t, fs, path, buf.Bytes())
}

func readOutput(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestRunExactDuplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.jpg", []byte("same bytes"))
	writeFile(t, fs, "/src/b.jpg", []byte("same bytes"))
	writeFile(t, fs, "/src/c.jpg", []byte("unique bytes"))

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ExactGroups != 1 {
		t.Errorf("ExactGroups = %d, want 1", result.ExactGroups)
	}
	if result.UniqueFiles != 2 {
		t.Errorf("UniqueFiles = %d, want 2", result.UniqueFiles)
	}
	if result.SimilarGroups != 0 {
		t.Errorf("SimilarGroups = %d, want 0 (fake jpegs do not decode)", result.SimilarGroups)
	}

	// The group's first-seen member is carried forward as 00001.jpg.
	if got := readOutput(t, fs, "/audit/consolidated_files/00001.jpg"); got != "same bytes" {
		t.Errorf("00001.jpg content = %q, want the duplicated bytes", got)
	}
	if got := readOutput(t, fs, "/audit/consolidated_files/00002.jpg"); got != "unique bytes" {
		t.Errorf("00002.jpg content = %q, want the unique file's bytes", got)
	}

	// Group directory holds both originals plus the path record.
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if ok, _ := afero.Exists(fs, "/audit/exact_duplicates/group_1/"+name); !ok {
			t.Errorf("exact_duplicates/group_1 missing %s", name)
		}
	}
	record := readOutput(t, fs, "/audit/exact_duplicates/group_1/original_paths.txt")
	if !strings.Contains(record, "a.jpg => /src/a.jpg") || !strings.Contains(record, "b.jpg => /src/b.jpg") {
		t.Errorf("original_paths.txt incomplete:\n%s", record)
	}

	// One duplicates-index block listing both originals.
	index := readOutput(t, fs, "/audit/consolidated_files/duplicates_index.txt")
	if strings.Count(index, "File: ") != 1 {
		t.Errorf("duplicates_index.txt should have one block:\n%s", index)
	}
	if !strings.Contains(index, "  - /src/a.jpg") || !strings.Contains(index, "  - /src/b.jpg") {
		t.Errorf("duplicates_index.txt missing original paths:\n%s", index)
	}

	// Master index covers every source file exactly once.
	master := readOutput(t, fs, "/audit/consolidated_files/master_file_index.txt")
	for _, fragment := range []string{"00001.jpg:", "00002.jpg:", "  - /src/a.jpg", "  - /src/b.jpg", "  - /src/c.jpg"} {
		if strings.Count(master, fragment) != 1 {
			t.Errorf("master_file_index.txt should contain %q exactly once:\n%s", fragment, master)
		}
	}
}

func TestRunAppendOnlyIndexes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.jpg", []byte("same bytes"))
	writeFile(t, fs, "/src/b.jpg", []byte("same bytes"))

	for run := 0; run < 2; run++ {
		if _, err := New(fs, 5).Run("/src", "/audit"); err != nil {
			t.Fatalf("Run() #%d error = %v", run+1, err)
		}
	}

	// The duplicates index accumulates one block per run.
	index := readOutput(t, fs, "/audit/consolidated_files/duplicates_index.txt")
	if got := strings.Count(index, "File: 00001.jpg"); got != 2 {
		t.Errorf("duplicates_index.txt has %d blocks after two runs, want 2", got)
	}

	// The per-group record also accumulates; the second run's copies get
	// collision suffixes because the originals are already in place.
	record := readOutput(t, fs, "/audit/exact_duplicates/group_1/original_paths.txt")
	if got := strings.Count(record, "=>"); got != 4 {
		t.Errorf("original_paths.txt has %d lines after two runs, want 4", got)
	}
	if !strings.Contains(record, "a_dup0.jpg => /src/a.jpg") {
		t.Errorf("second run should record a collision-suffixed copy:\n%s", record)
	}

	// The master index reflects only the latest run.
	master := readOutput(t, fs, "/audit/consolidated_files/master_file_index.txt")
	if got := strings.Count(master, "00001.jpg:"); got != 1 {
		t.Errorf("master_file_index.txt has %d entries for 00001.jpg, want 1", got)
	}
}

func TestRunEmptyTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/src", 0755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ExactGroups != 0 || result.SimilarGroups != 0 || result.UniqueFiles != 0 {
		t.Errorf("Run() on empty tree = %+v, want all zero counts", result)
	}

	// The master index is still written, just empty of entries.
	master := readOutput(t, fs, "/audit/consolidated_files/master_file_index.txt")
	if !strings.Contains(master, "# Master File Index") {
		t.Errorf("master_file_index.txt missing header:\n%s", master)
	}
}

func TestRunNonImageSingleton(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/data.bin", []byte{0x00, 0x01, 0x02, 0x03})

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.UniqueFiles != 1 {
		t.Errorf("UniqueFiles = %d, want 1", result.UniqueFiles)
	}
	if ok, _ := afero.Exists(fs, "/audit/consolidated_files/00001.bin"); !ok {
		t.Error("consolidated_files missing 00001.bin")
	}

	// No image extensions anywhere, so the similarity stage never ran.
	entries, err := afero.ReadDir(fs, "/audit/similar_files")
	if err != nil {
		t.Fatalf("Failed to read similar_files: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("similar_files should be empty, found %d entries", len(entries))
	}
}

func TestRunSimilarImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	pattern := func(x, y int) uint8 { return uint8((x*5 + y*3) % 256) }
	nudged := func(x, y int) uint8 {
		if x == 5 && y == 5 {
			return pattern(x, y) + 128
		}
		return pattern(x, y)
	}
	writeTestPNG(t, fs, "/src/p1.png", pattern)
	writeTestPNG(t, fs, "/src/p2.png", nudged)
	writeFile(t, fs, "/src/notes.txt", []byte("not an image"))

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// All three files are byte-distinct, so every one consolidates.
	if result.ExactGroups != 0 {
		t.Errorf("ExactGroups = %d, want 0", result.ExactGroups)
	}
	if result.UniqueFiles != 3 {
		t.Errorf("UniqueFiles = %d, want 3", result.UniqueFiles)
	}

	// The two near-identical renders land in one similar group.
	if result.SimilarGroups != 1 {
		t.Fatalf("SimilarGroups = %d, want 1", result.SimilarGroups)
	}
	for _, name := range []string{"p1.png", "p2.png"} {
		if ok, _ := afero.Exists(fs, "/audit/similar_files/similar_group_1/"+name); !ok {
			t.Errorf("similar_group_1 missing %s", name)
		}
	}
	record := readOutput(t, fs, "/audit/similar_files/similar_group_1/original_paths.txt")
	if !strings.Contains(record, "p1.png => /src/p1.png") || !strings.Contains(record, "p2.png => /src/p2.png") {
		t.Errorf("original_paths.txt incomplete:\n%s", record)
	}
	if strings.Contains(record, "notes.txt") {
		t.Errorf("non-image file leaked into a similar group:\n%s", record)
	}
}

func TestRunExactGroupExcludedFromSimilarity(t *testing.T) {
	fs := afero.NewMemMapFs()
	pattern := func(x, y int) uint8 { return uint8((x*7 + y*2) % 256) }
	nudged := func(x, y int) uint8 {
		if x == 10 && y == 10 {
			return pattern(x, y) + 128
		}
		return pattern(x, y)
	}
	// p1 and p2 are byte-identical; p3 is visually close to both but
	// byte-distinct.
	writeTestPNG(t, fs, "/src/p1.png", pattern)
	writeTestPNG(t, fs, "/src/p2.png", pattern)
	writeTestPNG(t, fs, "/src/p3.png", nudged)

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ExactGroups != 1 {
		t.Errorf("ExactGroups = %d, want 1", result.ExactGroups)
	}

	// p1 and p2 are exact-group members, so only p3 reaches the
	// similarity pass; a lone image never forms a group.
	if result.SimilarGroups != 0 {
		t.Errorf("SimilarGroups = %d, want 0 (exact members are excluded)", result.SimilarGroups)
	}
}

func TestRunCounterGapless(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 4; i++ {
		writeFile(t, fs, fmt.Sprintf("/src/file%d.bin", i), []byte(fmt.Sprintf("content %d", i)))
	}

	result, err := New(fs, 5).Run("/src", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.UniqueFiles != 4 {
		t.Errorf("UniqueFiles = %d, want 4", result.UniqueFiles)
	}

	entries, err := afero.ReadDir(fs, "/audit/consolidated_files")
	if err != nil {
		t.Fatalf("Failed to read consolidated_files: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".bin") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	want := []string{"00001.bin", "00002.bin", "00003.bin", "00004.bin"}
	if len(names) != len(want) {
		t.Fatalf("consolidated names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("consolidated name[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestRunMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()

	result, err := New(fs, 5).Run("/does-not-exist", "/audit")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.UniqueFiles != 0 {
		t.Errorf("UniqueFiles = %d, want 0 for a missing source tree", result.UniqueFiles)
	}
}
