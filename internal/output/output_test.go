package output

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		a        Assignment
		expected string
	}{
		{"first badge", Assignment{Name: "Alice", Kind: KindBadge, Number: 1}, "Alice-badge.jpeg"},
		{"second badge", Assignment{Name: "Alice", Kind: KindBadge, Number: 2}, "Alice-badge-2.jpeg"},
		{"photo", Assignment{Name: "Alice", Kind: KindPhoto, Number: 3}, "Alice-3.jpeg"},
		{"name with space", Assignment{Name: "Bob Smith", Kind: KindPhoto, Number: 1}, "Bob Smith-1.jpeg"},
		{"slash in name", Assignment{Name: "A/B", Kind: KindBadge, Number: 1}, "A_B-badge.jpeg"},
		{"dot dot", Assignment{Name: "..", Kind: KindPhoto, Number: 1}, "_-1.jpeg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FileName(tc.a); got != tc.expected {
				t.Errorf("FileName = %q; want %q", got, tc.expected)
			}
		})
	}
}

func TestNew_UnmatchedDir(t *testing.T) {
	w := New("/out", "", Options{})
	if w.UnmatchedDir() != filepath.Join("/out", "unmatched") {
		t.Errorf("unexpected default unmatched dir %s", w.UnmatchedDir())
	}

	w = New("/out", "/elsewhere", Options{})
	if w.UnmatchedDir() != "/elsewhere" {
		t.Errorf("absolute unmatched dir changed to %s", w.UnmatchedDir())
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", Options{Quality: 90})
	if err := w.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	path, err := w.Save(createTestImage(20, 10), Assignment{Name: "Alice", Kind: KindBadge, Number: 1})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != filepath.Join(dir, "Alice-badge.jpeg") {
		t.Errorf("unexpected path %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestSave_CollisionAdvancesNumber(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", Options{})

	tests := []struct {
		a        Assignment
		expected string
	}{
		{Assignment{Name: "Alice", Kind: KindPhoto, Number: 1}, "Alice-1.jpeg"},
		{Assignment{Name: "Alice", Kind: KindPhoto, Number: 2}, "Alice-2.jpeg"},
		// A later badge event restarts photo numbering at 1.
		{Assignment{Name: "Alice", Kind: KindPhoto, Number: 1}, "Alice-3.jpeg"},
		{Assignment{Name: "Alice", Kind: KindBadge, Number: 1}, "Alice-badge.jpeg"},
		{Assignment{Name: "Alice", Kind: KindBadge, Number: 1}, "Alice-badge-2.jpeg"},
	}

	for _, tc := range tests {
		path, err := w.Save(createTestImage(4, 4), tc.a)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if filepath.Base(path) != tc.expected {
			t.Errorf("Save(%+v) = %s; want %s", tc.a, filepath.Base(path), tc.expected)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(tests) {
		t.Errorf("expected %d files, got %d", len(tests), len(entries))
	}
}

func TestCopyUnmatched(t *testing.T) {
	src := filepath.Join(t.TempDir(), "IMG_0001.png")
	data := []byte("not really a png, copied verbatim")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	w := New(out, "", Options{})
	if err := w.Prepare(); err != nil {
		t.Fatal(err)
	}

	dst, err := w.CopyUnmatched(src)
	if err != nil {
		t.Fatalf("CopyUnmatched failed: %v", err)
	}
	if dst != filepath.Join(out, "unmatched", "IMG_0001.png") {
		t.Errorf("unexpected destination %s", dst)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("unmatched copy differs from source")
	}
}

func TestCopyUnmatched_IntoInputDir(t *testing.T) {
	input := t.TempDir()
	src := filepath.Join(input, "IMG_0001.jpg")
	data := []byte("original bytes that must survive")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(t.TempDir(), input, Options{})
	if err := w.Prepare(); err != nil {
		t.Fatal(err)
	}

	dst, err := w.CopyUnmatched(src)
	if err != nil {
		t.Fatalf("CopyUnmatched failed: %v", err)
	}
	if dst != src {
		t.Errorf("unexpected destination %s", dst)
	}
	got, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("source was truncated: %q", got)
	}
}

func TestDryRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	w := New(out, "", Options{DryRun: true})
	if err := w.Prepare(); err != nil {
		t.Fatal(err)
	}

	path, err := w.Save(createTestImage(4, 4), Assignment{Name: "Bob", Kind: KindPhoto, Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Bob-1.jpeg" {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := w.CopyUnmatched("/nonexistent/x.jpg"); err != nil {
		t.Errorf("dry run should not touch the source: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("dry run created the output directory")
	}
}
