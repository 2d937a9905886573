//go:build linux

package uvconfig

const platformModuleExt = ".so"
