//go:build !linux && !darwin

package uvconfig

// Dynamic prism loading is only supported on Linux and macOS (Go's
// plugin package does not support Windows). Hosts on other platforms
// still resolve a path — the multiplexer's load step is what surfaces
// the "other" error when plugin.Open is unavailable.
const platformModuleExt = ".so"
