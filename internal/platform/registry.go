package platform

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownPlatform is returned by Get for a name nothing was registered under.
var ErrUnknownPlatform = errors.New("platform not registered")

// Registry maps platform names to scrapers. Use NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]Scraper
}

func NewRegistry() *Registry {
	return &Registry{scrapers: make(map[string]Scraper)}
}

// Register adds or replaces the scraper for name.
func (r *Registry) Register(name string, scraper Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[name] = scraper
}

func (r *Registry) Get(name string) (Scraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scrapers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry the CLI and MCP server share.
var Default = NewRegistry()

func Register(name string, scraper Scraper) { Default.Register(name, scraper) }

func Get(name string) (Scraper, error) { return Default.Get(name) }

func List() []string { return Default.Names() }
