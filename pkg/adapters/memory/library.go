package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/corefollow/pkg/domain"
)

// Library implements ports.ScenarioLibrary over scenarios held in memory,
// typically the ones declared inline in a case file.
type Library struct {
	scenarios map[string]domain.Scenario
}

// NewLibrary creates a library from scenarios. Later duplicates replace earlier ones.
func NewLibrary(scenarios ...domain.Scenario) *Library {
	l := &Library{scenarios: make(map[string]domain.Scenario, len(scenarios))}
	for _, s := range scenarios {
		l.scenarios[s.Name] = s
	}
	return l
}

// List returns the scenario names, sorted.
func (l *Library) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(l.scenarios))
	for name := range l.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Scenario returns a copy of the named scenario.
func (l *Library) Scenario(ctx context.Context, name string) (*domain.Scenario, error) {
	s, ok := l.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scenario %q", domain.ErrConfiguration, name)
	}
	s.Items = append([]domain.ScenarioItem(nil), s.Items...)
	return &s, nil
}
