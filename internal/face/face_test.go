package face

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fixedDetector returns the same rectangles for every image.
type fixedDetector struct {
	faces []image.Rectangle
	err   error
	calls int
}

func (d *fixedDetector) Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	d.calls++
	return d.faces, d.err
}

func (d *fixedDetector) Close() error { return nil }

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{0.5, 0.5}, Embedding{0.5, 0.5}, 0},
		{"3-4-5", Embedding{0, 0}, Embedding{3, 4}, 5},
		{"single axis", Embedding{1, 0, 0}, Embedding{0, 0, 0}, 1},
		{"length mismatch", Embedding{1}, Embedding{1, 2}, math.Inf(1)},
		{"empty", Embedding{}, Embedding{}, math.Inf(1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Distance(tc.a, tc.b); got != tc.expected {
				t.Errorf("Distance = %v; want %v", got, tc.expected)
			}
		})
	}
}

func TestMatch_StrictThreshold(t *testing.T) {
	zero := make(Embedding, 4)
	atThreshold := Embedding{20, 0, 0, 0}
	justBelow := Embedding{19.999, 0, 0, 0}

	if Match(zero, atThreshold, 20.0) {
		t.Error("distance exactly at the threshold must not match")
	}
	if !Match(zero, justBelow, 20.0) {
		t.Error("distance below the threshold must match")
	}
}

func TestEmbed_NoFace(t *testing.T) {
	e := NewEmbedder(&fixedDetector{}, 100)

	emb, err := e.Embed(context.Background(), createTestImage(50, 50, color.White))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if emb != nil {
		t.Errorf("expected nil embedding, got %d values", len(emb))
	}
}

func TestEmbed_ShapeAndRange(t *testing.T) {
	img := createTestImage(200, 200, color.Black)
	// White square where the "face" is.
	for x := 50; x < 150; x++ {
		for y := 50; y < 150; y++ {
			img.Set(x, y, color.White)
		}
	}
	det := &fixedDetector{faces: []image.Rectangle{
		image.Rect(50, 50, 150, 150),
		image.Rect(0, 0, 10, 10), // ignored: only the first region is used
	}}
	e := NewEmbedder(det, 100)

	emb, err := e.Embed(context.Background(), img)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(emb) != 100*100 {
		t.Fatalf("expected 10000 values, got %d", len(emb))
	}
	for i, v := range emb {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}
	if emb[50*100+50] != 1 {
		t.Errorf("expected white centre pixel, got %v", emb[50*100+50])
	}
}

func TestEmbed_SameFaceDifferentPhotos(t *testing.T) {
	det := &fixedDetector{faces: []image.Rectangle{image.Rect(10, 10, 60, 60)}}
	e := NewEmbedder(det, 100)

	a, err := e.Embed(context.Background(), createTestImage(100, 100, color.Gray{Y: 120}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), createTestImage(100, 100, color.Gray{Y: 125}))
	if err != nil {
		t.Fatal(err)
	}
	c, err := e.Embed(context.Background(), createTestImage(100, 100, color.White))
	if err != nil {
		t.Fatal(err)
	}

	if !Match(a, b, 20.0) {
		t.Errorf("similar patches should match, distance %v", Distance(a, b))
	}
	if Match(a, c, 20.0) {
		t.Errorf("different patches should not match, distance %v", Distance(a, c))
	}
}

func TestEmbed_RegionOutsideImage(t *testing.T) {
	det := &fixedDetector{faces: []image.Rectangle{image.Rect(500, 500, 600, 600)}}
	e := NewEmbedder(det, 100)

	emb, err := e.Embed(context.Background(), createTestImage(100, 100, color.White))
	if err != nil {
		t.Fatal(err)
	}
	if emb != nil {
		t.Error("region outside the image should count as no face")
	}
}

func TestEmbed_DetectorError(t *testing.T) {
	backendErr := errors.New("detector unavailable")
	e := NewEmbedder(&fixedDetector{err: backendErr}, 100)

	_, err := e.Embed(context.Background(), createTestImage(10, 10, color.White))
	if !errors.Is(err, backendErr) {
		t.Errorf("expected wrapped detector error, got %v", err)
	}
}

func TestServerDetector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
		} else {
			file.Close()
			if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("unexpected content type %s", ct)
			}
		}
		w.Write([]byte(`{"faces_count":2,"faces":[
			{"face_index":0,"bbox":[10.4,20.2,40.6,60.9],"det_score":0.91},
			{"face_index":1,"bbox":[1,2,3],"det_score":0.5}
		],"model":"buffalo_l"}`))
	}))
	defer server.Close()

	d := NewServerDetector(server.URL + "/")
	faces, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 80, 80)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 valid face, got %d", len(faces))
	}
	if want := image.Rect(10, 20, 41, 61); faces[0] != want {
		t.Errorf("face = %v; want %v", faces[0], want)
	}
}

func TestServerDetector_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewServerDetector(server.URL).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}
