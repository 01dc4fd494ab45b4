package corpus

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/resilience"
)

// DefaultArchiveURL is the NLTK data mirror of the movie_reviews corpus.
const DefaultArchiveURL = "https://raw.githubusercontent.com/nltk/nltk_data/gh-pages/packages/corpora/movie_reviews.zip"

// archive members look like movie_reviews/pos/cv000_29590.txt
var memberPattern = regexp.MustCompile(`^(?:[^/]+/)?([^/]+)/([^/]+\.txt)$`)

// ArchiveConfig describes where to fetch the corpus archive and where to keep
// the downloaded copy.
type ArchiveConfig struct {
	URL        string
	CacheDir   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Retry      resilience.RetryConfig
}

// ArchiveSource reads the corpus from a zip archive, downloading it once into
// CacheDir when it is not already present.
type ArchiveSource struct {
	cfg    ArchiveConfig
	logger *slog.Logger
}

func NewArchiveSource(cfg ArchiveConfig) *ArchiveSource {
	if cfg.URL == "" {
		cfg.URL = DefaultArchiveURL
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join("data", "corpora")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &ArchiveSource{
		cfg:    cfg,
		logger: slog.Default().With("component", "corpus-archive"),
	}
}

func (s *ArchiveSource) Name() string {
	return "archive:" + s.cfg.URL
}

// LocalPath is where the archive is cached.
func (s *ArchiveSource) LocalPath() string {
	return filepath.Join(s.cfg.CacheDir, path.Base(s.cfg.URL))
}

func (s *ArchiveSource) Documents(ctx context.Context) ([]Document, error) {
	local := s.LocalPath()
	if _, err := os.Stat(local); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking cached corpus: %w", err)
		}
		if err := s.download(ctx, local); err != nil {
			return nil, err
		}
	}
	return readArchive(ctx, local)
}

func (s *ArchiveSource) download(ctx context.Context, dest string) error {
	start := time.Now()
	s.logger.Info("downloading corpus", "url", s.cfg.URL, "dest", dest)
	err := resilience.Retry(ctx, "corpus-download", s.cfg.Retry, func() error {
		return resilience.WithTimeout(ctx, s.cfg.Timeout, "corpus-download", func(ctx context.Context) error {
			return s.fetch(ctx, dest)
		})
	})
	if err != nil {
		return fmt.Errorf("downloading corpus from %s: %w", s.cfg.URL, err)
	}
	s.logger.Info("corpus downloaded", "dest", dest, "duration", time.Since(start))
	return nil
}

func (s *ArchiveSource) fetch(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return resilience.Permanent(err)
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return resilience.Permanent(fmt.Errorf("creating cache directory: %w", err))
	}
	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return resilience.Permanent(fmt.Errorf("creating temp archive: %w", err))
	}
	tmp := f.Name()
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing archive: %w", err)
	}
	f.Close()
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming archive: %w", err)
	}
	return nil
}

func readArchive(ctx context.Context, archivePath string) ([]Document, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening corpus archive: %w", err)
	}
	defer zr.Close()

	var members []*zip.File
	var ids, cats []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		m := memberPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		members = append(members, f)
		ids = append(ids, m[1]+"/"+m[2])
		cats = append(cats, m[1])
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("corpus archive %s contains no documents", archivePath)
	}

	docs := make([]Document, len(members))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i := range members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc, err := members[i].Open()
			if err != nil {
				return fmt.Errorf("opening %s: %w", members[i].Name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("reading %s: %w", members[i].Name, err)
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
