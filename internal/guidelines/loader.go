// Package guidelines loads reporting checklist definitions (CONSORT, SPIRIT)
// used as compliance reference text in analysis prompts.
package guidelines

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed data/*.json
var defaultData embed.FS

// Item is one checklist entry of a guideline.
type Item struct {
	ID          string   `json:"id"`
	Section     string   `json:"section"`
	Item        string   `json:"item"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Guideline is a named, versioned reporting checklist.
type Guideline struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Items       []Item `json:"items"`
}

// Loader resolves guideline identifiers to checklist content. Definitions
// come from an optional override directory, falling back to the embedded
// defaults. Loaded guidelines are cached for the process lifetime.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Guideline
}

// NewLoader creates a Loader. dir may be empty, in which case only the
// embedded defaults are served.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]*Guideline),
	}
}

// Load returns the guideline for the given identifier (e.g. "consort").
func (l *Loader) Load(id string) (*Guideline, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, fmt.Errorf("empty guideline id")
	}

	l.mu.RLock()
	if g, ok := l.cache[id]; ok {
		l.mu.RUnlock()
		return g, nil
	}
	l.mu.RUnlock()

	g, err := l.read(id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[id] = g
	l.mu.Unlock()
	return g, nil
}

// List returns the identifiers of all available guidelines, sorted.
func (l *Loader) List() []string {
	seen := map[string]bool{}

	entries, err := defaultData.ReadDir("data")
	if err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".json")] = true
		}
	}

	if l.dir != "" {
		if files, err := os.ReadDir(l.dir); err == nil {
			for _, f := range files {
				if strings.HasSuffix(f.Name(), ".json") {
					seen[strings.TrimSuffix(f.Name(), ".json")] = true
				}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// read loads a guideline definition from the override dir or embedded data.
func (l *Loader) read(id string) (*Guideline, error) {
	var data []byte
	var err error

	if l.dir != "" {
		path := filepath.Join(l.dir, id+".json")
		if data, err = os.ReadFile(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read guideline %s: %w", id, err)
		}
	}
	if data == nil {
		if data, err = defaultData.ReadFile("data/" + id + ".json"); err != nil {
			return nil, fmt.Errorf("unknown guideline %q", id)
		}
	}

	var g Guideline
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse guideline %s: %w", id, err)
	}
	if len(g.Items) == 0 {
		return nil, fmt.Errorf("guideline %s has no items", id)
	}
	return &g, nil
}
