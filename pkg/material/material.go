// Package material is a keyed store of bulk materials and optical
// surfaces. The construction root looks entries up by symbolic name and
// never inspects them beyond attaching them to volumes.
package material

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a name has no catalog entry.
var ErrNotFound = errors.New("not found in catalog")

// Material is a bulk material. Density is in g/cm3.
type Material struct {
	Name    string  `json:"name"`
	Density float64 `json:"density"`
}

// SurfaceType classifies the interface an optical surface models.
type SurfaceType string

const (
	DielectricMetal      SurfaceType = "dielectric_metal"
	DielectricDielectric SurfaceType = "dielectric_dielectric"
)

// Surface is an optical surface attached to a volume skin or to the
// border between two placements.
type Surface struct {
	Name         string      `json:"name"`
	Type         SurfaceType `json:"type"`
	Finish       string      `json:"finish"`
	Reflectivity float64     `json:"reflectivity"`
}

// Catalog holds materials and surfaces by name. It is safe for
// concurrent lookups.
type Catalog struct {
	mu        sync.RWMutex
	materials map[string]*Material
	surfaces  map[string]*Surface
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		materials: make(map[string]*Material),
		surfaces:  make(map[string]*Surface),
	}
}

// AddMaterial registers m, replacing any entry with the same name.
func (c *Catalog) AddMaterial(m *Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials[m.Name] = m
}

// AddSurface registers s, replacing any entry with the same name.
func (c *Catalog) AddSurface(s *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces[s.Name] = s
}

// Find returns the material called name.
func (c *Catalog) Find(name string) (*Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.materials[name]
	if !ok {
		return nil, fmt.Errorf("material %q: %w", name, ErrNotFound)
	}
	return m, nil
}

// FindSurface returns the optical surface called name.
func (c *Catalog) FindSurface(name string) (*Surface, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("surface %q: %w", name, ErrNotFound)
	}
	return s, nil
}

// Names returns the sorted material names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.materials))
	for n := range c.materials {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
