// Package esptool builds and runs esptool command lines.
//
// The merge itself is delegated entirely to `esptool merge_bin`; this package
// only renders its arguments, runs it synchronously and renders the
// write_flash commands shown to the operator.
package esptool
