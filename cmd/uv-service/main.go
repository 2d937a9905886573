// Command uv-service runs the WebSocket bridge standalone, exposing the
// pulse protocol at /ws per spec section 4.9.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rpheuts/ultraviolet-sub001/multiplexer"
	"github.com/rpheuts/ultraviolet-sub001/service"
)

func main() {
	bind := flag.String("bind", "127.0.0.1:3000", "address to bind the server to")
	tls := flag.Bool("tls", false, "enable TLS for secure WebSocket connections")
	cert := flag.String("cert", "", "path to TLS certificate file (required with -tls)")
	key := flag.String("key", "", "path to TLS key file (required with -tls)")
	staticDir := flag.String("static-dir", "", "serve static files from the specified directory")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *tls && (*cert == "" || *key == "") {
		fmt.Fprintln(os.Stderr, "uv-service: -cert and -key are required when -tls is set")
		os.Exit(1)
	}

	opts := service.Options{
		BindAddr:  *bind,
		StaticDir: *staticDir,
	}
	if *tls {
		opts.TLSCert = *cert
		opts.TLSKey = *key
	}

	mux := multiplexer.New(logger)
	srv := service.New(opts, mux, logger)

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("uv-service exited", "error", err)
		os.Exit(1)
	}
}
