package problem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/models"
)

// Fetcher is anything that can produce a problem by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*models.Problem, error)
}

// Validate reports why a problem is not usable for local testing, or nil.
func Validate(p *models.Problem) error {
	switch {
	case p == nil:
		return errors.New("problem is nil")
	case p.Title == "":
		return errors.New("missing title")
	case p.Description == "":
		return errors.New("missing description")
	case p.InputDesc == "":
		return errors.New("missing input description")
	case p.OutputDesc == "":
		return errors.New("missing output description")
	case len(p.Samples) == 0:
		return errors.New("no samples")
	}
	for i, s := range p.Samples {
		if s.Input == "" && s.Output == "" {
			return fmt.Errorf("sample %d is empty", i+1)
		}
	}
	return nil
}

// CachedProvider keeps zstd-compressed JSON copies of fetched problems.
// Invalid cache entries are removed and fetched again; only valid problems
// are written back.
type CachedProvider struct {
	next   Fetcher
	dir    string
	logger *zap.SugaredLogger
}

func NewCachedProvider(next Fetcher, dir string, logger *zap.SugaredLogger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedProvider{next: next, dir: dir, logger: logger}
}

func (c *CachedProvider) path(id string) string {
	return filepath.Join(c.dir, fmt.Sprintf("problem-%s.json.zst", id))
}

func (c *CachedProvider) Fetch(ctx context.Context, id string) (*models.Problem, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	cached, err := c.load(id)
	switch {
	case err == nil:
		verr := Validate(cached)
		if verr == nil {
			c.logger.Debugw("using cached problem", "problem", id)
			return cached, nil
		}
		c.logger.Infow("cached problem invalid, refetching", "problem", id, "reason", verr)
		c.Invalidate(id)
	case !errors.Is(err, fs.ErrNotExist):
		c.logger.Warnw("unreadable cache entry, refetching", "problem", id, "error", err)
		c.Invalidate(id)
	}

	p, err := c.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if verr := Validate(p); verr != nil {
		c.logger.Debugw("not caching incomplete problem", "problem", id, "reason", verr)
		return p, nil
	}
	if err := c.store(id, p); err != nil {
		c.logger.Warnw("failed to cache problem", "problem", id, "error", err)
	}
	return p, nil
}

// Invalidate drops the cache entry for id if there is one.
func (c *CachedProvider) Invalidate(id string) {
	if !ValidID(id) {
		return
	}
	if err := os.Remove(c.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warnw("failed to remove cache entry", "problem", id, "error", err)
	}
}

func (c *CachedProvider) load(id string) (*models.Problem, error) {
	f, err := os.Open(c.path(id))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var p models.Problem
	if err := json.NewDecoder(dec).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &p, nil
}

// store writes to a temp file and renames it so readers never see a
// partial entry.
func (c *CachedProvider) store(id string, p *models.Problem) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, "problem-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	if err := json.NewEncoder(enc).Encode(p); err != nil {
		enc.Close()
		tmp.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(id))
}
