package dataset

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var shardName = regexp.MustCompile(`^shard-([0-9]{6,})\.tar$`)

type shardFile struct {
	path  string
	index int
}

// shardIndex parses N out of a shard-NNNNNN.tar file name.
func shardIndex(name string) (int, bool) {
	m := shardName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// DiscoverShards walks root for shard TAR files and returns them ordered by
// shard index, ties broken by path. Dot directories are skipped.
func DiscoverShards(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover shards: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover shards: %s is not a directory", root)
	}

	var found []shardFile
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if idx, ok := shardIndex(d.Name()); ok {
			found = append(found, shardFile{path: path, index: idx})
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("discover shards under %s: %w", root, err)
	}

	slices.SortFunc(found, func(a, b shardFile) int {
		if c := cmp.Compare(a.index, b.index); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

// DiscoverByRoot scans each root independently and fails if a root is empty.
func DiscoverByRoot(roots []string) (map[string][]string, error) {
	result := make(map[string][]string, len(roots))
	for _, root := range roots {
		shards, err := DiscoverShards(root)
		if err != nil {
			return nil, err
		}
		if len(shards) == 0 {
			return nil, fmt.Errorf("no shards discovered under %s", root)
		}
		result[root] = shards
	}
	return result, nil
}
