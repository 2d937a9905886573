// Package uvconfig resolves the filesystem locations the host runtime
// depends on: the prism install root and the optional web assets
// directory, both overridable by environment variable. Grounded on the
// teacher's internal/config search-path/fallback idiom, adapted from
// "find a YAML config file" to "resolve a well-known directory".
package uvconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// InstallDirEnv overrides the default install root ($HOME/.uv).
const InstallDirEnv = "UV_INSTALL_DIR"

// WebDirEnv overrides the default web assets directory
// ($HOME/.uv/assets/web).
const WebDirEnv = "UV_WEB_DIR"

// InstallDir returns the install root: $UV_INSTALL_DIR if set, else
// $HOME/.uv.
func InstallDir() (string, error) {
	if dir := os.Getenv(InstallDirEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve install dir: HOME not set: %w", err)
	}
	return filepath.Join(home, ".uv"), nil
}

// WebDir returns the web assets directory: $UV_WEB_DIR if set, else
// <install-root>/assets/web.
func WebDir() (string, error) {
	if dir := os.Getenv(WebDirEnv); dir != "" {
		return dir, nil
	}

	installDir, err := InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(installDir, "assets", "web"), nil
}

// SpectrumPath returns the path to a prism's spectrum.json under the
// install root.
func SpectrumPath(namespace, name string) (string, error) {
	installDir, err := InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(installDir, "prisms", namespace, name, "spectrum.json"), nil
}

// ModulePath returns the path to a prism's dynamically loadable module
// under the install root, using the platform's shared library extension.
func ModulePath(namespace, name string) (string, error) {
	installDir, err := InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(installDir, "prisms", namespace, name, "module"+platformModuleExt), nil
}
