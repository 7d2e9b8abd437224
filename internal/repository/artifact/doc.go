// Package artifact publishes merged firmware into the project's firmware
// directory.
//
// FileRepository copies the timestamped image and overwrites the "latest"
// alias, and can additionally emit an Intel HEX rendition and a YAML release
// manifest. Every publish step fails independently: errors are collected,
// never returned early.
package artifact
