package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// PlatformIOScriptFilename is the extra_scripts hook written by fwmerge init.
const PlatformIOScriptFilename = "fwmerge_post.py"

//go:embed fwmerge_post.py
var platformIOScript []byte

// PlatformIOScript returns the post-build hook that forwards
// FLASH_EXTRA_IMAGES and the board values of a PlatformIO build to fwmerge.
func PlatformIOScript() []byte {
	return append([]byte(nil), platformIOScript...)
}

// SavePlatformIOScript writes the post-build hook to path.
func SavePlatformIOScript(path string) error {
	if path == "" {
		path = PlatformIOScriptFilename
	}

	if err := os.WriteFile(filepath.Clean(path), platformIOScript, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write platformio script: %w", err)
	}

	return nil
}
