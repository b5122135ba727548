package dataset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, FeatureGrid, FeatureGrid))
	for y := 0; y < FeatureGrid; y++ {
		for x := 0; x < FeatureGrid; x++ {
			img.SetGray(x, y, color.Gray{Y: shade})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExtractFeatures(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, FeatureGrid, FeatureGrid))
	for y := 0; y < FeatureGrid; y++ {
		for x := 0; x < FeatureGrid; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 255)})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	features, err := ExtractFeatures(buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	if len(features) != FeatureSize {
		t.Fatalf("expected %d features, got %d", FeatureSize, len(features))
	}
	for _, v := range features {
		if v < 0 || v > 1 {
			t.Fatalf("feature out of range: %f", v)
		}
	}
}

func TestClampLabel(t *testing.T) {
	tests := []struct{ in, want int }{{-3, 0}, {0, 0}, {9, 9}, {10, 0}, {23, 3}}
	for _, tc := range tests {
		if got := ClampLabel(tc.in, 10); got != tc.want {
			t.Errorf("ClampLabel(%d)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestLoadKeepsShardOrderAndSkipsBadImages(t *testing.T) {
	dir := t.TempDir()
	rootA := filepath.Join(dir, "a")
	rootB := filepath.Join(dir, "b")
	shardA := filepath.Join(rootA, "shard-000000.tar")
	shardB := filepath.Join(rootB, "shard-000001.tar")
	writeShard(t, shardA, []shardEntry{
		{key: "a0", ext: ".png", image: encodePNG(t, 10), label: 1},
		{key: "a1", ext: ".jpg", image: []byte("not an image"), label: 2},
	})
	writeShard(t, shardB, []shardEntry{
		{key: "b0", ext: ".png", image: encodePNG(t, 200), label: 12},
	})

	opts := LoadOptions{
		Roots:      map[string][]string{rootA: {shardA}, rootB: {shardB}},
		Seed:       1,
		NumWorkers: 2,
		NumClasses: 10,
	}
	res, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Shards != 2 || res.Skipped != 1 {
		t.Fatalf("unexpected stats shards=%d skipped=%d", res.Shards, res.Skipped)
	}
	if len(res.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(res.Examples))
	}
	if res.Examples[0].Key != "a0" || res.Examples[1].Key != "b0" {
		t.Fatalf("unexpected order %s, %s", res.Examples[0].Key, res.Examples[1].Key)
	}
	if res.Examples[1].Label != 2 {
		t.Fatalf("label not clamped: %d", res.Examples[1].Label)
	}
}

func TestLoadPropagatesShardErrors(t *testing.T) {
	opts := LoadOptions{
		Roots:      map[string][]string{"x": {filepath.Join(t.TempDir(), "missing.tar")}},
		NumWorkers: 1,
	}
	if _, err := Load(context.Background(), opts); err == nil {
		t.Fatal("expected error for missing shard")
	}
}

func TestLoadNoRoots(t *testing.T) {
	if _, err := Load(context.Background(), LoadOptions{}); err == nil {
		t.Fatal("expected error without roots")
	}
}
