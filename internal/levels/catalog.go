package levels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
)

// Source is anything that can list and fetch levels.
type Source interface {
	List(ctx context.Context) ([]models.LevelSummary, error)
	Get(ctx context.Context, slug string) (Level, error)
}

var (
	_ Source = (*Catalog)(nil)
	_ Source = (*Store)(nil)
)

// LoadDir reads every .yaml/.yml file in dir, ordered by position then slug.
func LoadDir(dir string) ([]Level, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read levels dir: %w", err)
	}

	var out []Level
	seen := make(map[string]string)
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		lvl, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[lvl.Slug]; dup {
			return nil, fmt.Errorf("%w: slug %q in both %s and %s", ErrInvalidLevel, lvl.Slug, prev, path)
		}
		seen[lvl.Slug] = path
		out = append(out, lvl)
	}

	sortLevels(out)
	return out, nil
}

// LoadFile parses and validates a single level file.
func LoadFile(path string) (Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return Level{}, fmt.Errorf("open level: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return Level{}, fmt.Errorf("%s: %w", path, err)
	}
	lvl, err := doc.Level()
	if err != nil {
		return Level{}, fmt.Errorf("%s: %w", path, err)
	}
	return lvl, nil
}

func sortLevels(ls []Level) {
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Position != ls[j].Position {
			return ls[i].Position < ls[j].Position
		}
		return ls[i].Slug < ls[j].Slug
	})
}

// Catalog is an in-memory level source, used when levels come straight from
// disk rather than the database.
type Catalog struct {
	mu     sync.RWMutex
	levels map[string]Level
	order  []string
}

func NewCatalog(ls []Level) *Catalog {
	c := &Catalog{levels: make(map[string]Level, len(ls))}
	sorted := append([]Level(nil), ls...)
	sortLevels(sorted)
	for _, l := range sorted {
		if _, dup := c.levels[l.Slug]; !dup {
			c.order = append(c.order, l.Slug)
		}
		c.levels[l.Slug] = l
	}
	return c
}

func (c *Catalog) List(ctx context.Context) ([]models.LevelSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.LevelSummary, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, summarize(c.levels[slug]))
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, slug string) (Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.levels[slug]
	if !ok {
		return Level{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return l, nil
}

func summarize(l Level) models.LevelSummary {
	return models.LevelSummary{
		Slug:        l.Slug,
		Name:        l.Name,
		Par:         l.Par,
		Position:    l.Position,
		Fingerprint: l.Fingerprint,
	}
}
