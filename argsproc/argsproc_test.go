package argsproc

import (
	"testing"

	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"
)

func echoWavelength() *spectrum.Wavelength {
	return &spectrum.Wavelength{
		Frequency: "echo",
		Input: spectrum.SchemaDefinition{
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string"},
				},
			},
			Required: []string{"message"},
		},
	}
}

func multiPropWavelength() *spectrum.Wavelength {
	return &spectrum.Wavelength{
		Frequency: "configure",
		Input: spectrum.SchemaDefinition{
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"count":   map[string]any{"type": "number"},
					"enabled": map[string]any{"type": "boolean"},
					"name":    map[string]any{"type": "string"},
				},
			},
			Required: []string{"count", "enabled"},
		},
	}
}

func TestSolePositionalAssignsToOnlyRequiredProperty(t *testing.T) {
	out, err := Process(echoWavelength(), []string{"hi there"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["message"] != "hi there" {
		t.Errorf("got %v", out)
	}
}

func TestNamedEqualsForm(t *testing.T) {
	out, err := Process(echoWavelength(), []string{"--message=hello"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["message"] != "hello" {
		t.Errorf("got %v", out)
	}
}

func TestNamedSpaceForm(t *testing.T) {
	out, err := Process(echoWavelength(), []string{"--message", "hello"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["message"] != "hello" {
		t.Errorf("got %v", out)
	}
}

func TestBooleanFlagWithNoValue(t *testing.T) {
	wl := multiPropWavelength()
	out, err := Process(wl, []string{"--count=3", "--enabled"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["enabled"] != true {
		t.Errorf("got %v", out["enabled"])
	}
	if out["count"] != float64(3) {
		t.Errorf("got %v", out["count"])
	}
}

func TestFlagFollowedByAnotherFlag(t *testing.T) {
	wl := multiPropWavelength()
	out, err := Process(wl, []string{"--enabled", "--count=1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["enabled"] != true {
		t.Errorf("expected enabled=true, got %v", out["enabled"])
	}
}

func TestNumberCoercionFailure(t *testing.T) {
	wl := multiPropWavelength()
	_, err := Process(wl, []string{"--count=not-a-number", "--enabled"})
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindInvalidInput {
		t.Errorf("expected invalid-input, got %v", err)
	}
}

func TestMultiplePositionalsDoNotFillRequiredProperties(t *testing.T) {
	wl := multiPropWavelength() // two required props, so no sole-positional target
	_, err := Process(wl, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error: missing required properties")
	}
}

func TestPositionalsUnderDefaultKeyWhenSchemaAllows(t *testing.T) {
	wl := &spectrum.Wavelength{
		Frequency: "noop",
		Input:     spectrum.SchemaDefinition{Schema: map[string]any{}, Required: nil},
	}
	out, err := Process(wl, []string{"a", "b"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	list, ok := out["default"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("got %v", out["default"])
	}
}

func TestMissingRequiredPropertyFails(t *testing.T) {
	_, err := Process(echoWavelength(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindInvalidInput {
		t.Errorf("expected invalid-input, got %v", err)
	}
}
