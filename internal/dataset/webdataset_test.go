package dataset

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestReadShardPairsEntries(t *testing.T) {
	dir := t.TempDir()
	shard := filepath.Join(dir, "shard-000000.tar")
	writeShard(t, shard, []shardEntry{
		{key: "000001", ext: ".jpg", image: []byte("jpeg"), label: 3},
		{key: "000002", ext: ".png", image: []byte("png"), label: 7},
	})

	samples, err := ReadShard(context.Background(), shard, 4)
	if err != nil {
		t.Fatalf("ReadShard: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Key != "000001" || samples[0].Label != 3 {
		t.Fatalf("unexpected first sample %+v", samples[0])
	}
	if samples[1].Key != "000002" || samples[1].Label != 7 {
		t.Fatalf("unexpected second sample %+v", samples[1])
	}
}

func TestReadShardIncompletePair(t *testing.T) {
	dir := t.TempDir()
	shard := filepath.Join(dir, "shard-000000.tar")
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarPayload(t, tw, "lonely.jpg", []byte("x"))
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}
	if _, err := ReadShard(context.Background(), shard, 4); err == nil {
		t.Fatal("expected error for unpaired image")
	}
}

func TestReadShardPendingOverflow(t *testing.T) {
	dir := t.TempDir()
	shard := filepath.Join(dir, "shard-000000.tar")
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for i := 0; i < 3; i++ {
		addTarPayload(t, tw, strconv.Itoa(i)+".jpg", []byte("x"))
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}
	_, err := ReadShard(context.Background(), shard, 2)
	if !errors.Is(err, ErrPendingOverflow) {
		t.Fatalf("expected ErrPendingOverflow, got %v", err)
	}
}

type shardEntry struct {
	key   string
	ext   string
	image []byte
	label int
}

func writeShard(t *testing.T, path string, entries []shardEntry) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for _, e := range entries {
		addTarPayload(t, tw, e.key+e.ext, e.image)
		addTarPayload(t, tw, e.key+".cls", []byte(strconv.Itoa(e.label)))
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}
}

func addTarPayload(t *testing.T, tw *tar.Writer, name string, data []byte) {
	t.Helper()
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}
