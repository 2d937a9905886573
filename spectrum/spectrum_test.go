package spectrum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpheuts/ultraviolet-sub001/pulse"
)

func writeSpectrum(t *testing.T, root, namespace, name, body string) {
	t.Helper()
	dir := filepath.Join(root, "prisms", namespace, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "spectrum.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write spectrum: %v", err)
	}
}

const echoSpectrumJSON = `{
	"name": "echo",
	"namespace": "example",
	"version": "0.1.0",
	"description": "Echoes input back",
	"tags": ["example"],
	"wavelengths": [
		{
			"frequency": "echo",
			"description": "Echo the message back",
			"input": {"type": "object", "required": ["message"]},
			"output": {"type": "object", "required": ["message"]}
		}
	],
	"refractions": []
}`

func TestLoadAndFind(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UV_INSTALL_DIR", root)
	writeSpectrum(t, root, "example", "echo", echoSpectrumJSON)

	loader := NewLoader()
	s, err := loader.Load("example:echo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "echo" || s.Namespace != "example" {
		t.Fatalf("unexpected identity: %+v", s)
	}

	wl, ok := s.FindWavelength("echo")
	if !ok {
		t.Fatalf("expected to find echo wavelength")
	}
	if len(wl.Input.Required) != 1 || wl.Input.Required[0] != "message" {
		t.Errorf("unexpected required list: %v", wl.Input.Required)
	}

	if _, ok := s.FindWavelength("nope"); ok {
		t.Errorf("expected nope to be absent")
	}
}

func TestLoadCaches(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UV_INSTALL_DIR", root)
	writeSpectrum(t, root, "example", "echo", echoSpectrumJSON)

	loader := NewLoader()
	first, err := loader.Load("example:echo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Remove the file on disk; a cache hit must not need to re-read it.
	path := filepath.Join(root, "prisms", "example", "echo", "spectrum.json")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	second, err := loader.Load("example:echo")
	if err != nil {
		t.Fatalf("load (cached): %v", err)
	}
	if first != second {
		t.Errorf("expected the same cached pointer")
	}
}

func TestLoadMissingFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UV_INSTALL_DIR", root)

	loader := NewLoader()
	_, err := loader.Load("example:missing")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindOther {
		t.Errorf("expected kind=other, got %v", err)
	}
}

func TestLoadInvalidID(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load("not-a-valid-id")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindInvalidInput {
		t.Errorf("expected kind=invalid-input, got %v", err)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UV_INSTALL_DIR", root)
	writeSpectrum(t, root, "example", "broken", "{not json")

	loader := NewLoader()
	_, err := loader.Load("example:broken")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindSerialization {
		t.Errorf("expected kind=serialization, got %v", err)
	}
}

func TestLoadIdentityMismatch(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UV_INSTALL_DIR", root)
	writeSpectrum(t, root, "example", "echo", `{
		"name": "other",
		"namespace": "other",
		"version": "0.1.0",
		"description": "",
		"wavelengths": []
	}`)

	loader := NewLoader()
	_, err := loader.Load("example:echo")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok || pe.Kind != pulse.KindInvalidInput {
		t.Errorf("expected kind=invalid-input, got %v", err)
	}
}
