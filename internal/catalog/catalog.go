// Package catalog resolves the question catalog from embedded or on-disk YAML.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"assessment-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Default returns the embedded catalog shipped with the service.
func Default() domain.Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// StaticLoader serves catalogs from an in-memory map (embedded default, files, tests).
type StaticLoader struct {
	catalogs map[string]domain.Catalog
}

// NewStaticLoader registers each catalog under its own id.
func NewStaticLoader(catalogs ...domain.Catalog) *StaticLoader {
	m := make(map[string]domain.Catalog, len(catalogs))
	for _, c := range catalogs {
		m[c.ID] = c
	}
	return &StaticLoader{catalogs: m}
}

func (l *StaticLoader) LoadCatalog(_ context.Context, id string) (domain.Catalog, error) {
	if c, ok := l.catalogs[id]; ok {
		return c, nil
	}
	return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, id)
}

// Loader is implemented by every catalog source.
type Loader interface {
	LoadCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// Chain tries each loader in turn and moves on only when a loader does not know the catalog.
type Chain []Loader

func (c Chain) LoadCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	for _, l := range c {
		cat, err := l.LoadCatalog(ctx, id)
		if errors.Is(err, domain.ErrCatalogNotFound) {
			continue
		}
		return cat, err
	}
	return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, id)
}
