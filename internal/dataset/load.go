package dataset

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

const (
	// FeatureGrid is the side of the grayscale grid images are reduced to.
	FeatureGrid = 16
	// FeatureSize is the length of every extracted feature vector.
	FeatureSize = FeatureGrid * FeatureGrid
)

// Example is a decoded sample ready for batching.
type Example struct {
	Key      string
	Features []float64
	Label    int
}

// LoadOptions configures Load.
type LoadOptions struct {
	Roots      map[string][]string
	Seed       int64
	NumWorkers int
	PendingCap int
	NumClasses int
}

// LoadResult holds decoded examples in shard order.
type LoadResult struct {
	Examples []Example
	Shards   int
	// Skipped counts images that failed to decode.
	Skipped int
}

// Load reads every shard under opts.Roots, decoding shards concurrently while
// keeping a deterministic round-robin shard order.
func Load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	if len(opts.Roots) == 0 {
		return LoadResult{}, errors.New("dataset: no roots provided")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumClasses <= 0 {
		opts.NumClasses = 10
	}
	order := buildRoundRobinOrder(opts.Roots, rand.New(rand.NewSource(opts.Seed)))
	if len(order) == 0 {
		return LoadResult{}, errors.New("dataset: no shards discovered")
	}

	perShard := make([][]Example, len(order))
	skipped := make([]int, len(order))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range order {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- i:
			}
		}
		return nil
	})

	for w := 0; w < opts.NumWorkers; w++ {
		g.Go(func() error {
			for i := range jobs {
				samples, err := ReadShard(ctx, order[i].path, opts.PendingCap)
				if err != nil {
					return err
				}
				examples := make([]Example, 0, len(samples))
				for _, s := range samples {
					features, err := ExtractFeatures(s.Image)
					if err != nil {
						skipped[i]++
						continue
					}
					examples = append(examples, Example{
						Key:      s.Key,
						Features: features,
						Label:    ClampLabel(s.Label, opts.NumClasses),
					})
				}
				perShard[i] = examples
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{Shards: len(order)}
	for i := range perShard {
		res.Examples = append(res.Examples, perShard[i]...)
		res.Skipped += skipped[i]
	}
	return res, nil
}

// ExtractFeatures samples a FeatureGrid x FeatureGrid grayscale grid from an
// encoded image. Values are in [0, 1].
func ExtractFeatures(raw []byte) ([]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("empty image")
	}
	features := make([]float64, FeatureSize)
	stepX := float64(width) / float64(FeatureGrid)
	stepY := float64(height) / float64(FeatureGrid)
	for gy := 0; gy < FeatureGrid; gy++ {
		for gx := 0; gx < FeatureGrid; gx++ {
			px := bounds.Min.X + int(math.Min(float64(width-1), float64(gx)*stepX))
			py := bounds.Min.Y + int(math.Min(float64(height-1), float64(gy)*stepY))
			r, g, b, _ := img.At(px, py).RGBA()
			features[gy*FeatureGrid+gx] = (float64(r) + float64(g) + float64(b)) / (3 * 65535.0)
		}
	}
	return features, nil
}

// ClampLabel maps label into [0, numClasses).
func ClampLabel(label, numClasses int) int {
	if label < 0 {
		return 0
	}
	if label >= numClasses {
		return label % numClasses
	}
	return label
}
