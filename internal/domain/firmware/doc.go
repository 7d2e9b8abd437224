// Package firmware contains the core domain types of a merged ESP32 image.
//
// It resolves board configuration into flash metadata (chip, flash size,
// frequency and mode), names the merged output deterministically and
// describes the ordered list of flash images fed to the merge tool.
package firmware
