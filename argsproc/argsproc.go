// Package argsproc turns a positional argv tail into a JSON object that
// validates against a wavelength's input schema, so a CLI caller never
// hand-builds JSON. Grounded on the original implementation's
// args_processor/parser module: named args ("--name value" / "--name=value"),
// boolean flags ("--flag"), and positional arguments.
package argsproc

import (
	"strconv"
	"strings"

	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"
)

// parsedArgs is the raw shape produced by the tokenizing pass, before it is
// reconciled against a schema.
type parsedArgs struct {
	named      map[string]string
	flags      map[string]bool
	positional []string
}

// tokenize splits argv into named args, boolean flags, and positionals.
func tokenize(args []string) parsedArgs {
	result := parsedArgs{
		named: make(map[string]string),
		flags: make(map[string]bool),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if !strings.HasPrefix(arg, "--") {
			result.positional = append(result.positional, arg)
			continue
		}

		name := arg[2:]
		if eq := strings.IndexByte(name, '='); eq != -1 {
			result.named[name[:eq]] = name[eq+1:]
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			result.named[name] = args[i+1]
			i++
			continue
		}

		// "--flag" with nothing following, or followed by another "--".
		result.flags[name] = true
	}

	return result
}

// conventionalPositionalKey is where positional arguments land when a
// wavelength's schema doesn't have exactly one required property.
const conventionalPositionalKey = "default"

// Process shapes argv into an input object for wavelength, validating the
// result against wavelength's required properties.
func Process(wavelength *spectrum.Wavelength, argv []string) (map[string]any, error) {
	parsed := tokenize(argv)

	out := make(map[string]any, len(parsed.named)+len(parsed.flags)+1)

	for name, raw := range parsed.named {
		value, err := coerce(wavelength, name, raw)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}

	for name := range parsed.flags {
		out[name] = true
	}

	if len(parsed.positional) > 0 {
		if key, ok := solePositionalTarget(wavelength); ok {
			value, err := coerce(wavelength, key, parsed.positional[0])
			if err != nil {
				return nil, err
			}
			out[key] = value
		} else {
			defaults := make([]any, len(parsed.positional))
			for i, p := range parsed.positional {
				defaults[i] = p
			}
			if len(defaults) == 1 {
				out[conventionalPositionalKey] = defaults[0]
			} else {
				out[conventionalPositionalKey] = defaults
			}
		}
	}

	if err := validate(wavelength, out); err != nil {
		return nil, err
	}

	return out, nil
}

// solePositionalTarget reports the single required property a bare
// positional should be assigned to, when the schema names exactly one.
func solePositionalTarget(wavelength *spectrum.Wavelength) (string, bool) {
	if len(wavelength.Input.Required) == 1 {
		return wavelength.Input.Required[0], true
	}
	return "", false
}

// propertyType returns the declared JSON-Schema "type" for name, or "" if
// undeclared (treated as string).
func propertyType(wavelength *spectrum.Wavelength, name string) string {
	props, ok := wavelength.Input.Schema["properties"].(map[string]any)
	if !ok {
		return ""
	}
	prop, ok := props[name].(map[string]any)
	if !ok {
		return ""
	}
	t, _ := prop["type"].(string)
	return t
}

// coerce converts a raw string argument to the type the schema declares
// for name: number or boolean are parsed, everything else stays a string.
func coerce(wavelength *spectrum.Wavelength, name, raw string) (any, error) {
	switch propertyType(wavelength, name) {
	case "number", "integer":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, pulse.NewError(pulse.KindInvalidInput,
				"property %q must be a number, got %q", name, raw)
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, pulse.NewError(pulse.KindInvalidInput,
				"property %q must be a boolean, got %q", name, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// validate checks that every required property is present.
func validate(wavelength *spectrum.Wavelength, out map[string]any) error {
	for _, req := range wavelength.Input.Required {
		if _, ok := out[req]; !ok {
			return pulse.NewError(pulse.KindInvalidInput, "missing required property %q", req)
		}
	}
	return nil
}
