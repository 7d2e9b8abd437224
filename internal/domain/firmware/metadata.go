package firmware

import (
	"fmt"
	"time"
)

// Board configuration keys as exposed by the PlatformIO board manifest.
const (
	KeyChip      = "build.mcu"
	KeyFlashSize = "upload.flash_size"
	KeyFlashFreq = "build.f_flash"
	KeyFlashMode = "build.flash_mode"
)

// Defaults applied when the board configuration lacks a key.
const (
	DefaultChip          = "esp32s3"
	DefaultFlashSize     = "8MB"
	DefaultFlashFreqCode = "80000000L"
	DefaultFlashMode     = "dio"

	// DefaultFlashFreq is the label used for unrecognized frequency codes.
	DefaultFlashFreq = "40m"
)

const (
	// TimestampLayout renders the build time with second resolution.
	TimestampLayout = "20060102_150405"

	// LatestTag replaces the timestamp in the alias filename.
	LatestTag = "latest"

	// BinaryExtension is the extension of every merged image.
	BinaryExtension = ".bin"
)

//nolint:gochecknoglobals // Read-only lookup table.
var flashFreqLabels = map[string]string{
	"80000000L": "80m",
	"40000000L": "40m",
	"26000000L": "26m",
	"20000000L": "20m",
}

// FlashFreq maps a raw f_flash code to the label esptool expects.
// Unknown codes fall back to DefaultFlashFreq.
func FlashFreq(code string) string {
	if label, ok := flashFreqLabels[code]; ok {
		return label
	}

	return DefaultFlashFreq
}

// BoardConfig is a read-only view of the board manifest values.
type BoardConfig map[string]string

// Get returns the value stored under key, or fallback when it is absent or empty.
// A nil BoardConfig is valid.
func (b BoardConfig) Get(key, fallback string) string {
	if value, ok := b[key]; ok && value != "" {
		return value
	}

	return fallback
}

// Metadata describes the target flash parameters of a merged image.
type Metadata struct {
	// Chip is the MCU identifier passed to esptool --chip.
	Chip string `yaml:"chip"`
	// FlashSize is the flash size label, e.g. "8MB".
	FlashSize string `yaml:"flash_size"`
	// FlashFreq is the esptool frequency label, e.g. "80m".
	FlashFreq string `yaml:"flash_freq"`
	// FlashMode is the SPI flash mode, e.g. "dio".
	FlashMode string `yaml:"flash_mode"`
}

// ResolveMetadata extracts flash metadata from the board configuration.
// It never fails: every field has a default.
func ResolveMetadata(board BoardConfig) Metadata {
	return Metadata{
		Chip:      board.Get(KeyChip, DefaultChip),
		FlashSize: board.Get(KeyFlashSize, DefaultFlashSize),
		FlashFreq: FlashFreq(board.Get(KeyFlashFreq, DefaultFlashFreqCode)),
		FlashMode: board.Get(KeyFlashMode, DefaultFlashMode),
	}
}

// Filename returns the timestamped name of the merged image.
func (m Metadata) Filename(project string, ts time.Time) string {
	return m.name(project, ts.Format(TimestampLayout))
}

// LatestFilename returns the alias name that is overwritten on every run.
func (m Metadata) LatestFilename(project string) string {
	return m.name(project, LatestTag)
}

func (m Metadata) name(project, tag string) string {
	return fmt.Sprintf("%s_%s_%s_%s%s", m.Chip, project, m.FlashSize, tag, BinaryExtension)
}
