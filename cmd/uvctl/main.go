// Command uvctl is a minimal local command runner for the prism system:
// it resolves a prism id and frequency from argv, shapes the remaining
// arguments into that wavelength's input via argsproc, sends the
// wavefront through a local multiplexer, and prints the result.
//
// Usage:
//
//	uvctl <namespace:name> <frequency> [args...]
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rpheuts/ultraviolet-sub001/argsproc"
	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/multiplexer"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: uvctl <namespace:name> <frequency> [args...]")
		os.Exit(1)
	}
	prismID := os.Args[1]
	frequency := os.Args[2]
	argv := os.Args[3:]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(prismID, frequency, argv, logger); err != nil {
		fmt.Fprintln(os.Stderr, "uvctl:", err)
		os.Exit(1)
	}
}

func run(prismID, frequency string, argv []string, logger *slog.Logger) error {
	namespace, name, err := spectrum.ParseID(prismID)
	if err != nil {
		return err
	}

	loader := spectrum.NewLoader()
	s, err := loader.Load(namespace + ":" + name)
	if err != nil {
		return fmt.Errorf("load spectrum: %w", err)
	}

	wavelength, ok := s.FindWavelength(frequency)
	if !ok {
		return pulse.NewError(pulse.KindMethodNotFound, "unknown frequency %q on %s", frequency, prismID)
	}

	input, err := argsproc.Process(wavelength, argv)
	if err != nil {
		return fmt.Errorf("shape arguments: %w", err)
	}

	mux := multiplexer.New(logger)
	defer mux.Shutdown()

	targetLink, err := mux.EstablishLink(prismID)
	if err != nil {
		return fmt.Errorf("establish link: %w", err)
	}
	defer targetLink.Close()

	id := uuid.New()
	if err := targetLink.SendWavefront(id, frequency, input); err != nil {
		return fmt.Errorf("send wavefront: %w", err)
	}

	output, err := link.Absorb[any](targetLink, id)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
