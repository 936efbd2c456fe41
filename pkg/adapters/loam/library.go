// Package loam provides a ports.ScenarioLibrary backed by a directory of markdown,
// YAML or JSON documents managed by Loam.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/loam"
)

// Library reads power maneuvers from a Loam repository. A document's id (its file
// name without extension) is the scenario name.
type Library struct {
	Repo *loam.TypedRepository[ScenarioMetadata]
}

// New creates a library over a typed repository.
func New(repo *loam.TypedRepository[ScenarioMetadata]) *Library {
	return &Library{Repo: repo}
}

// Open initializes a read-only repository at path and wraps it in a Library.
func Open(path string) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scenario path: %w", domain.ErrConfiguration, err)
	}
	repo, err := loam.Init(abs, loam.WithVersioning(false), loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize loam: %w", domain.ErrConfiguration, err)
	}
	return New(loam.NewTypedRepository[ScenarioMetadata](repo)), nil
}

// List returns the scenario names, sorted.
func (l *Library) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := trimExtension(doc.ID)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: scenario %q is defined in both %q and %q", domain.ErrConfiguration, name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Scenario loads and validates the named scenario.
func (l *Library) Scenario(ctx context.Context, name string) (*domain.Scenario, error) {
	doc, err := l.Repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: scenario %q: %w", domain.ErrConfiguration, name, err)
	}

	meta := doc.Data
	s := &domain.Scenario{
		Name:        meta.Name,
		Description: meta.Description,
		TimeStep:    meta.TimeStep,
		Items:       make([]domain.ScenarioItem, 0, len(meta.Items)),
	}
	if s.Name == "" {
		s.Name = trimExtension(name)
	}
	if s.Description == "" {
		s.Description = strings.TrimSpace(doc.Content)
	}
	for i, it := range meta.Items {
		item := it.toDomain()
		if item.Duration <= 0 {
			return nil, fmt.Errorf("%w: scenario %q item %d has no duration", domain.ErrConfiguration, name, i)
		}
		if item.PowerRatio < 0 {
			return nil, fmt.Errorf("%w: scenario %q item %d has negative power", domain.ErrConfiguration, name, i)
		}
		s.Items = append(s.Items, item)
	}
	if len(s.Items) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no items", domain.ErrConfiguration, name)
	}
	if s.TimeStep < 0 {
		return nil, fmt.Errorf("%w: scenario %q has a negative time step", domain.ErrConfiguration, name)
	}
	return s, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
