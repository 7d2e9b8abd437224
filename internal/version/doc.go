// Package version exposes build metadata for fwmerge.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// Short is embedded into release manifests; Full backs the `version` command.
package version
