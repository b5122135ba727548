package dataset

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sample represents a paired record from a WebDataset shard.
type Sample struct {
	Key   string
	Image []byte
	Label int
}

// ErrPendingOverflow indicates the pairing map exceeded the configured bound.
var ErrPendingOverflow = errors.New("webdataset: pending pair buffer exceeded")

const defaultPendingCap = 1024

type partial struct {
	image []byte
	label *int
}

func (p *partial) ready() bool {
	return len(p.image) > 0 && p.label != nil
}

// StreamShard streams paired samples from the shard at path in archive order.
// The error channel yields at most one value and is closed after out.
func StreamShard(ctx context.Context, path string, pendingCap int) (<-chan Sample, <-chan error) {
	if pendingCap <= 0 {
		pendingCap = defaultPendingCap
	}
	out := make(chan Sample)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(out)
		if err := streamShard(ctx, path, pendingCap, out); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// ReadShard collects every sample of a shard.
func ReadShard(ctx context.Context, path string, pendingCap int) ([]Sample, error) {
	samples, errCh := StreamShard(ctx, path, pendingCap)
	var out []Sample
	for s := range samples {
		out = append(out, s)
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func streamShard(ctx context.Context, path string, pendingCap int, out chan<- Sample) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(bufio.NewReader(f))
	pending := make(map[string]*partial)
	lookup := func(key string) *partial {
		part := pending[key]
		if part == nil {
			part = &partial{}
			pending[key] = part
		}
		return part
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(hdr.Name)
		ext := strings.ToLower(filepath.Ext(name))
		key := strings.TrimSuffix(name, filepath.Ext(name))

		switch ext {
		case ".jpg", ".jpeg", ".png":
			data, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("read image %s: %w", name, err)
			}
			lookup(key).image = data
		case ".cls":
			payload, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("read label %s: %w", name, err)
			}
			label, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return fmt.Errorf("parse label %s: %w", name, err)
			}
			lookup(key).label = &label
		default:
			continue
		}

		if len(pending) > pendingCap {
			return ErrPendingOverflow
		}

		part := pending[key]
		if !part.ready() {
			continue
		}
		delete(pending, key)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- Sample{Key: key, Image: part.image, Label: *part.label}:
		}
	}

	if len(pending) > 0 {
		return fmt.Errorf("%d samples incomplete", len(pending))
	}
	return nil
}
