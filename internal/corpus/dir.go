package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

const readConcurrency = 8

// DirSource reads a corpus laid out as <root>/<category>/<file>.txt, the
// same shape as the extracted movie_reviews archive.
type DirSource struct {
	Root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

func (s *DirSource) Name() string {
	return "dir:" + s.Root
}

// Documents returns every .txt file one level below a category directory,
// ordered by ID.
func (s *DirSource) Documents(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}
	var paths, ids, cats []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		category := entry.Name()
		files, err := os.ReadDir(filepath.Join(s.Root, category))
		if err != nil {
			return nil, fmt.Errorf("reading category %s: %w", category, err)
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".txt" {
				continue
			}
			paths = append(paths, filepath.Join(s.Root, category, f.Name()))
			ids = append(ids, category+"/"+f.Name())
			cats = append(cats, category)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents found under %s", s.Root)
	}

	docs := make([]Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(paths[i])
			if err != nil {
				return fmt.Errorf("reading %s: %w", ids[i], err)
			}
			docs[i] = Document{ID: ids[i], Text: string(data), Categories: []string{cats[i]}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}
