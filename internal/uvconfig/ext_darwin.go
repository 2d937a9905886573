//go:build darwin

package uvconfig

const platformModuleExt = ".dylib"
