// Package refraction implements the only permitted way for one prism to
// call another: a declared, named dependency rather than a hard import,
// with property remapping between the caller's and callee's schemas.
package refraction

import (
	"encoding/json"

	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"

	"github.com/google/uuid"
)

// Linker is the multiplexer capability the refraction engine needs: the
// ability to establish a fresh link to a target prism. Declared here,
// rather than depending on the multiplexer package directly, so the
// multiplexer can depend on refraction without an import cycle.
type Linker interface {
	EstablishLink(prismID string) (*link.Link, error)
}

// Refract resolves name against callerSpectrum's declared refractions,
// remaps input per the declaration, establishes a link to the target
// through linker, and forwards the wavefront. The returned link is the
// caller's to stream or absorb from.
func Refract(linker Linker, callerSpectrum *spectrum.Spectrum, name string, input any) (*link.Link, error) {
	ref, ok := callerSpectrum.FindRefraction(name)
	if !ok {
		return nil, pulse.NewError(pulse.KindRefraction, "refraction not found: %s", name)
	}

	mappedInput, err := applyMapping(input, ref.InputMap)
	if err != nil {
		return nil, pulse.NewError(pulse.KindPropertyMapping, "refraction %q input mapping: %v", name, err)
	}

	targetLink, err := linker.EstablishLink(ref.Target)
	if err != nil {
		// Propagate the multiplexer's error verbatim.
		return nil, err
	}

	id := uuid.New()
	if err := targetLink.SendWavefront(id, ref.Frequency, mappedInput); err != nil {
		return nil, pulse.NewError(pulse.KindTransport, "refraction %q: %v", name, err)
	}

	return targetLink, nil
}

// RefractAndAbsorb calls Refract, then absorbs the response and applies
// the refraction's output mapping before returning it.
func RefractAndAbsorb[T any](linker Linker, callerSpectrum *spectrum.Spectrum, name string, input any) (T, error) {
	var zero T

	ref, ok := callerSpectrum.FindRefraction(name)
	if !ok {
		return zero, pulse.NewError(pulse.KindRefraction, "refraction not found: %s", name)
	}

	mappedInput, err := applyMapping(input, ref.InputMap)
	if err != nil {
		return zero, pulse.NewError(pulse.KindPropertyMapping, "refraction %q input mapping: %v", name, err)
	}

	targetLink, err := linker.EstablishLink(ref.Target)
	if err != nil {
		return zero, err
	}

	id := uuid.New()
	if err := targetLink.SendWavefront(id, ref.Frequency, mappedInput); err != nil {
		return zero, pulse.NewError(pulse.KindTransport, "refraction %q: %v", name, err)
	}

	raw, err := link.Absorb[any](targetLink, id)
	if err != nil {
		return zero, err
	}

	mappedOutput, err := applyMapping(raw, ref.OutputMap)
	if err != nil {
		return zero, pulse.NewError(pulse.KindPropertyMapping, "refraction %q output mapping: %v", name, err)
	}

	return recast[T](mappedOutput)
}

// applyMapping renames top-level fields per mappings. Data not shaped as a
// map[string]any with a non-empty mapping list is a mapping failure;
// fields not named by any mapping pass through unchanged.
func applyMapping(data any, mappings []spectrum.PropertyMapping) (any, error) {
	if len(mappings) == 0 {
		return data, nil
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, errPropertyMappingShape
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, m := range mappings {
		v, present := out[m.From]
		if !present {
			continue
		}
		delete(out, m.From)
		out[m.To] = v
	}
	return out, nil
}

type propertyMappingShapeError struct{}

func (propertyMappingShapeError) Error() string {
	return "property mapping requires an object-shaped value"
}

var errPropertyMappingShape = propertyMappingShapeError{}

// recast round-trips v through JSON into T. Used after output mapping,
// where the intermediate value is an untyped map[string]any, not yet the
// type the caller's code expects.
func recast[T any](v any) (T, error) {
	var zero T
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, pulse.NewError(pulse.KindSerialization, "encode refraction output: %v", err)
	}
	if err := json.Unmarshal(raw, &zero); err != nil {
		return zero, pulse.NewError(pulse.KindSerialization, "decode refraction output: %v", err)
	}
	return zero, nil
}
