// Package spectrum loads and caches the on-disk declaration that makes a
// prism's dynamic dispatch safe: its wavelengths, its refractions, and the
// metadata identifying it.
package spectrum

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rpheuts/ultraviolet-sub001/internal/uvconfig"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
)

// SchemaDefinition embeds a JSON-Schema-ish document plus the list of
// properties that are required for a valid input/output.
type SchemaDefinition struct {
	Schema   map[string]any `json:"-"`
	Required []string       `json:"required"`
}

// MarshalJSON flattens Schema's keys alongside Required, mirroring the
// original's #[serde(flatten)] document shape.
func (s SchemaDefinition) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Schema)+1)
	for k, v := range s.Schema {
		out[k] = v
	}
	out["required"] = s.Required
	return json.Marshal(out)
}

// UnmarshalJSON splits the flattened document back into Schema and
// Required.
func (s *SchemaDefinition) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var required []string
	if r, ok := raw["required"]; ok {
		rs, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(rs, &required); err != nil {
			return fmt.Errorf("decode required list: %w", err)
		}
		delete(raw, "required")
	}

	s.Schema = raw
	s.Required = required
	return nil
}

// Wavelength is one named, typed callable on a prism.
type Wavelength struct {
	Frequency   string           `json:"frequency"`
	Description string           `json:"description"`
	Input       SchemaDefinition `json:"input"`
	Output      SchemaDefinition `json:"output"`
}

// PropertyMapping renames a field between a caller's and a callee's
// schema. Per spec section 9, only top-level renames are supported; dotted
// paths and constant injection are a documented extension point.
type PropertyMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Refraction is a declared outbound dependency on another prism's
// wavelength.
type Refraction struct {
	Name      string            `json:"name"`
	Target    string            `json:"target"`
	Frequency string            `json:"frequency"`
	InputMap  []PropertyMapping `json:"input_map,omitempty"`
	OutputMap []PropertyMapping `json:"output_map,omitempty"`
}

// Spectrum is a prism's full declared surface.
type Spectrum struct {
	Name        string       `json:"name"`
	Namespace   string       `json:"namespace"`
	Version     string       `json:"version"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Wavelengths []Wavelength `json:"wavelengths"`
	Refractions []Refraction `json:"refractions"`
}

// ID returns the spectrum's own namespace:name identity.
func (s *Spectrum) ID() string {
	return s.Namespace + ":" + s.Name
}

// FindWavelength looks up a wavelength by frequency name.
func (s *Spectrum) FindWavelength(frequency string) (*Wavelength, bool) {
	for i := range s.Wavelengths {
		if s.Wavelengths[i].Frequency == frequency {
			return &s.Wavelengths[i], true
		}
	}
	return nil, false
}

// FindRefraction looks up a declared refraction by its local alias.
func (s *Spectrum) FindRefraction(name string) (*Refraction, bool) {
	for i := range s.Refractions {
		if s.Refractions[i].Name == name {
			return &s.Refractions[i], true
		}
	}
	return nil, false
}

// ParseID splits "namespace:name" into its two parts, failing with
// invalid-input if the format doesn't hold.
func ParseID(prismID string) (namespace, name string, err error) {
	parts := strings.SplitN(prismID, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", pulse.NewError(pulse.KindInvalidInput,
			"invalid prism id format: %q (expected namespace:name)", prismID)
	}
	return parts[0], parts[1], nil
}

// cacheCapacity bounds the in-memory LRU fronting spectrum loads, so a
// long-running host that churns through many distinct prism ids doesn't
// grow the cache without bound.
const cacheCapacity = 1024

// Loader loads and process-wide caches spectrum declarations. Spectrum
// files are read-only at runtime (spec section 3): once loaded, an id's
// Spectrum stays cached until the bounded LRU evicts it, after which the
// next Load for that id reads the file again.
type Loader struct {
	// mu guards cache: the underlying LRU reorders its recency list even on
	// reads, so it needs exclusion on every access, not just writes.
	mu    sync.Mutex
	cache *lru.Cache[string, *Spectrum]
}

// NewLoader constructs a Loader with its bounded cache.
func NewLoader() *Loader {
	cache, err := lru.New[string, *Spectrum](cacheCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which cacheCapacity
		// never is.
		panic(fmt.Sprintf("spectrum: unexpected lru.New error: %v", err))
	}
	return &Loader{cache: cache}
}

// Load resolves, reads, and caches the spectrum for prismID
// ("namespace:name"). A cache hit never touches the filesystem.
func (l *Loader) Load(prismID string) (*Spectrum, error) {
	l.mu.Lock()
	if s, ok := l.cache.Get(prismID); ok {
		l.mu.Unlock()
		return s, nil
	}
	l.mu.Unlock()

	namespace, name, err := ParseID(prismID)
	if err != nil {
		return nil, err
	}

	path, err := uvconfig.SpectrumPath(namespace, name)
	if err != nil {
		return nil, pulse.NewError(pulse.KindOther, "resolve spectrum path: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pulse.NewError(pulse.KindOther, "Spectrum file not found for prism: %s", prismID)
		}
		return nil, pulse.NewError(pulse.KindOther, "read spectrum file %s: %v", path, err)
	}

	var s Spectrum
	if err := json.Unmarshal(content, &s); err != nil {
		return nil, pulse.NewError(pulse.KindSerialization, "parse spectrum file %s: %v", path, err)
	}

	if s.Namespace != namespace || s.Name != name {
		return nil, pulse.NewError(pulse.KindInvalidInput,
			"spectrum file for %s declares identity %s:%s", prismID, s.Namespace, s.Name)
	}

	l.mu.Lock()
	l.cache.Add(prismID, &s)
	l.mu.Unlock()

	return &s, nil
}
