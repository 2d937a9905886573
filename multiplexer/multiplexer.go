// Package multiplexer is the central broker described in spec section
// 4.8: it dynamically loads prism modules, instantiates one prism per
// established link, and wires refraction calls through to it.
package multiplexer

import (
	"log/slog"
	"plugin"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rpheuts/ultraviolet-sub001/internal/uvconfig"
	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/prism"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/refraction"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"
	"github.com/rpheuts/ultraviolet-sub001/transport"
)

// CreatePrismSymbol is the exported symbol name every prism module must
// define, matching spec section 6's create_prism ABI entry. Go plugin
// symbols must be exported identifiers, so the wire name is capitalized.
const CreatePrismSymbol = "CreatePrism"

// Factory is the shape create_prism resolves to: a zero-argument
// constructor returning a fresh, owned Prism.
type Factory func() prism.Prism

// Multiplexer loads prism modules, instantiates them per link, and
// brokers refraction calls between them. The zero value is not usable;
// construct with New.
type Multiplexer struct {
	spectra *spectrum.Loader
	logger  *slog.Logger

	// libMu/libs cache opened plugin handles by prism id. Read-mostly,
	// single-writer: Get acquires a read lock, insertion acquires the
	// write lock. loadGroup serializes concurrent first-loads of the
	// same id without blocking concurrent loads of distinct ids, so one
	// slow open() doesn't stall unrelated establish_link calls.
	libMu     sync.RWMutex
	libs      map[string]*plugin.Plugin
	loadGroup singleflight.Group
}

// New constructs a Multiplexer. A nil logger falls back to
// slog.Default().
func New(logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{
		spectra: spectrum.NewLoader(),
		logger:  logger,
		libs:    make(map[string]*plugin.Plugin),
	}
}

// EstablishLink validates prismID against its on-disk spectrum, loads (or
// reuses) the module, instantiates a fresh prism, and wires it to a newly
// spawned PrismCore over an in-memory transport pair. The caller's end of
// the pair is returned.
func (m *Multiplexer) EstablishLink(prismID string) (*link.Link, error) {
	s, err := m.spectra.Load(prismID)
	if err != nil {
		return nil, err
	}

	lib, err := m.loadLibrary(prismID)
	if err != nil {
		return nil, err
	}

	factory, err := resolveFactory(lib, prismID)
	if err != nil {
		return nil, err
	}

	instance := factory()
	if err := instance.Init(s); err != nil {
		return nil, pulse.NewError(pulse.KindExecution, "prism %q init: %v", prismID, err)
	}

	callerEnd, prismEnd := newLinkedPair()
	core := prism.NewCore(instance, prismEnd, m.logger)
	go core.Run()

	return callerEnd, nil
}

// Refract resolves and forwards a wavefront per a caller spectrum's
// declared refraction, returning the established link for streaming or
// absorbing.
func (m *Multiplexer) Refract(callerSpectrum *spectrum.Spectrum, name string, input any) (*link.Link, error) {
	return refraction.Refract(m, callerSpectrum, name, input)
}

// RefractAndAbsorb is Refract followed by a single absorb and the
// refraction's output mapping.
func RefractAndAbsorb[T any](m *Multiplexer, callerSpectrum *spectrum.Spectrum, name string, input any) (T, error) {
	return refraction.RefractAndAbsorb[T](m, callerSpectrum, name, input)
}

// Shutdown releases the multiplexer's own bookkeeping. Opened plugin
// libraries are not, and cannot be, unloaded by Go's plugin package: per
// spec section 4.8 they outlive any prism instance created from them, so
// Shutdown only logs and clears the cache references.
func (m *Multiplexer) Shutdown() error {
	m.libMu.Lock()
	defer m.libMu.Unlock()
	m.logger.Info("multiplexer shutdown", "loaded_modules", len(m.libs))
	m.libs = make(map[string]*plugin.Plugin)
	return nil
}

// loadLibrary returns the cached *plugin.Plugin for prismID, opening it
// from disk on first use. Concurrent first-loads of the same id collapse
// onto a single plugin.Open call via loadGroup.
func (m *Multiplexer) loadLibrary(prismID string) (*plugin.Plugin, error) {
	m.libMu.RLock()
	lib, ok := m.libs[prismID]
	m.libMu.RUnlock()
	if ok {
		return lib, nil
	}

	namespace, name, err := spectrum.ParseID(prismID)
	if err != nil {
		return nil, err
	}

	v, err, _ := m.loadGroup.Do(prismID, func() (any, error) {
		m.libMu.RLock()
		if lib, ok := m.libs[prismID]; ok {
			m.libMu.RUnlock()
			return lib, nil
		}
		m.libMu.RUnlock()

		path, err := uvconfig.ModulePath(namespace, name)
		if err != nil {
			return nil, pulse.NewError(pulse.KindOther, "resolve module path for %s: %v", prismID, err)
		}

		lib, err := plugin.Open(path)
		if err != nil {
			return nil, pulse.NewError(pulse.KindOther, "open prism module for %s: %v", prismID, err)
		}

		m.libMu.Lock()
		m.libs[prismID] = lib
		m.libMu.Unlock()

		return lib, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*plugin.Plugin), nil
}

// newLinkedPair creates an in-memory transport pair and wraps each end in
// a Link, per spec section 4.8's wiring step.
func newLinkedPair() (callerEnd, prismEnd *link.Link) {
	a, b := transport.NewPair()
	return link.New(a, nil), link.New(b, nil)
}

// resolveFactory looks up and type-asserts the create_prism symbol.
func resolveFactory(lib *plugin.Plugin, prismID string) (Factory, error) {
	sym, err := lib.Lookup(CreatePrismSymbol)
	if err != nil {
		return nil, pulse.NewError(pulse.KindOther, "prism module %s missing %s symbol: %v", prismID, CreatePrismSymbol, err)
	}
	factory, ok := sym.(func() prism.Prism)
	if !ok {
		return nil, pulse.NewError(pulse.KindOther, "prism module %s: %s has wrong signature", prismID, CreatePrismSymbol)
	}
	return factory, nil
}
