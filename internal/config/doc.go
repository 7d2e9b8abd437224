// Package config defines the build environment fwmerge runs in and provides
// helpers to load, validate and save it in YAML format.
//
// Path values may reference ${BUILD_DIR}, ${PROJECT_DIR}, ${PROGNAME} and
// ${PIOENV}, mirroring the PlatformIO variables the values come from.
package config
