package detector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/drcal/pkg/volume"
)

// ErrDuplicateDetector is returned when a sensitive detector name is
// registered twice.
var ErrDuplicateDetector = errors.New("sensitive detector already registered")

// ModuleProperty is the per-module record attached to a sensitive
// detector. TowerXY holds the plate and fiber counts of the lattice.
type ModuleProperty struct {
	TowerXY   [2]int `json:"towerXY"`
	ModuleNum int    `json:"moduleNum"`
}

// SensitiveDetector binds a logical volume to a named hits collection.
type SensitiveDetector struct {
	Name       string
	Collection string
	Logical    *volume.Logical
	Property   ModuleProperty
}

// SensitiveRegistry holds the sensitive detectors of one build, in
// registration order.
type SensitiveRegistry struct {
	mu     sync.RWMutex
	byName map[string]*SensitiveDetector
	order  []*SensitiveDetector
}

func NewSensitiveRegistry() *SensitiveRegistry {
	return &SensitiveRegistry{byName: make(map[string]*SensitiveDetector)}
}

// Register adds sd. Names are unique.
func (r *SensitiveRegistry) Register(sd SensitiveDetector) error {
	if sd.Logical == nil {
		return fmt.Errorf("register %s: no logical volume", sd.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[sd.Name]; ok {
		return fmt.Errorf("register %s: %w", sd.Name, ErrDuplicateDetector)
	}
	r.byName[sd.Name] = &sd
	r.order = append(r.order, &sd)
	return nil
}

// Lookup returns the detector registered under name.
func (r *SensitiveRegistry) Lookup(name string) (SensitiveDetector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sd, ok := r.byName[name]
	if !ok {
		return SensitiveDetector{}, false
	}
	return *sd, true
}

// Detectors returns a copy of every registered detector.
func (r *SensitiveRegistry) Detectors() []SensitiveDetector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SensitiveDetector, len(r.order))
	for i, sd := range r.order {
		out[i] = *sd
	}
	return out
}

func (r *SensitiveRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
