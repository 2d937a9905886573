// Command prism-echo builds as a Go plugin (buildmode=plugin) exposing
// the CreatePrism ABI entry point the multiplexer resolves per spec
// section 6:
//
//	go build -buildmode=plugin -o module.so ./cmd/prism-echo
//
// The built module.so belongs at
// <install-root>/prisms/example/echo/module.so, alongside a copy of
// prisms/echo/spectrum.json.
package main

import (
	"github.com/rpheuts/ultraviolet-sub001/prism"
	"github.com/rpheuts/ultraviolet-sub001/prisms/echo"
)

// CreatePrism is the exported factory symbol multiplexer.CreatePrismSymbol
// resolves via plugin.Lookup.
func CreatePrism() prism.Prism {
	return echo.New()
}

func main() {}
