package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
)

// Config is the build environment handed over by the build system.
type Config struct {
	// BuildDir is the directory holding the compiled fragments ($BUILD_DIR).
	BuildDir string `yaml:"build_dir"`
	// ProjectDir is the project root ($PROJECT_DIR).
	ProjectDir string `yaml:"project_dir"`
	// ProjectName is embedded into firmware names ($PIOENV).
	ProjectName string `yaml:"project_name"`
	// ProgName is the application binary stem ($PROGNAME).
	ProgName string `yaml:"prog_name"`
	// AppOffset is the flash address of the application image ($ESP32_APP_OFFSET).
	AppOffset string `yaml:"app_offset"`
	// AppBinary is the freshly built application image.
	AppBinary string `yaml:"app_binary"`
	// FirmwareDir receives the published copies.
	FirmwareDir string `yaml:"firmware_dir"`
	// Board holds board manifest values such as build.mcu.
	Board firmware.BoardConfig `yaml:"board"`
	// ExtraImages are the bootloader, partition table and similar fragments
	// in flash-address order ($FLASH_EXTRA_IMAGES).
	ExtraImages []firmware.FlashImage `yaml:"extra_images"`
	// MergeTool is how esptool is started, e.g. [python3, -m, esptool].
	MergeTool []string `yaml:"merge_tool"`
	// FlashPort is the serial port shown in the suggested flash command.
	FlashPort string `yaml:"flash_port"`
	// FlashBaud is the baud rate shown in the suggested flash command.
	FlashBaud int `yaml:"flash_baud"`
	// TrustOutputOnly treats an existing output file as success even if the
	// merge tool exited with an error.
	TrustOutputOnly bool `yaml:"trust_output_only"`
	// Hex additionally publishes an Intel HEX copy of the latest image.
	Hex bool `yaml:"hex"`
	// Manifest additionally publishes a YAML release manifest.
	Manifest bool `yaml:"manifest"`
}

const (
	// DefaultConfigFilename is the default filename for the build environment.
	DefaultConfigFilename = "fwmerge.yaml"

	// DefaultProjectDir is used when the project root is not set.
	DefaultProjectDir = "."

	// DefaultProgName matches the PlatformIO default $PROGNAME.
	DefaultProgName = "firmware"

	// DefaultAppOffset is the usual ESP32 application partition address.
	DefaultAppOffset = "0x10000"

	// DefaultAppBinary is expanded after BUILD_DIR and PROGNAME are known.
	DefaultAppBinary = "${BUILD_DIR}/${PROGNAME}.bin"

	// DefaultFirmwareDir is expanded after PROJECT_DIR is known.
	DefaultFirmwareDir = "${PROJECT_DIR}/firmware"

	// DefaultFlashPort is the placeholder port in the suggested flash command.
	DefaultFlashPort = "COM3"

	// DefaultFlashBaud is the baud rate in the suggested flash command.
	DefaultFlashBaud = 1500000

	// DefaultFilePermissions is the file permission for saved config files.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBuildDirRequired is returned when the build directory is missing.
	errBuildDirRequired = errors.New("build directory must be provided")
	// errProjectNameRequired is returned when no project name can be derived.
	errProjectNameRequired = errors.New("project name must be provided")
	// errBadFlashBaud is returned for a non-positive baud rate.
	errBadFlashBaud = errors.New("flash baud rate must be positive")
)

// Load reads configuration from the provided path without validating it,
// so callers can apply overrides first. A missing file yields an error
// matching os.ErrNotExist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to the provided path. The configuration is validated on a
// copy so ${VAR} placeholders are persisted unexpanded.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg.Clone()); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Clone returns a deep copy of cfg.
func (c *Config) Clone() *Config {
	cloned := *c
	cloned.Board = maps.Clone(c.Board)
	cloned.ExtraImages = slices.Clone(c.ExtraImages)
	cloned.MergeTool = slices.Clone(c.MergeTool)

	return &cloned
}

// Images returns the full ordered list handed to the merge tool: the extra
// images followed by the application binary.
func (c *Config) Images() []firmware.FlashImage {
	images := make([]firmware.FlashImage, 0, len(c.ExtraImages)+1)
	images = append(images, c.ExtraImages...)

	return append(images, firmware.FlashImage{Offset: c.AppOffset, Path: c.AppBinary})
}

// Validate fills defaults, expands ${VAR} references in path values and
// checks the required fields.
//
// Recognized variables are BUILD_DIR, PROJECT_DIR, PROGNAME and PIOENV; any
// other name is looked up in the process environment.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	vars := make(map[string]string, 4)

	if cfg.ProjectDir == "" {
		cfg.ProjectDir = DefaultProjectDir
	}

	cfg.ProjectDir = expand(cfg.ProjectDir, vars)
	vars["PROJECT_DIR"] = cfg.ProjectDir

	cfg.BuildDir = expand(strings.TrimSpace(cfg.BuildDir), vars)
	if cfg.BuildDir == "" {
		return errBuildDirRequired
	}

	vars["BUILD_DIR"] = cfg.BuildDir

	if cfg.ProgName == "" {
		cfg.ProgName = DefaultProgName
	}

	vars["PROGNAME"] = cfg.ProgName

	if cfg.ProjectName == "" {
		name, err := projectNameFromDir(cfg.ProjectDir)
		if err != nil {
			return err
		}

		cfg.ProjectName = name
	}

	vars["PIOENV"] = cfg.ProjectName

	if cfg.AppOffset == "" {
		cfg.AppOffset = DefaultAppOffset
	}

	if cfg.AppBinary == "" {
		cfg.AppBinary = DefaultAppBinary
	}

	cfg.AppBinary = expand(cfg.AppBinary, vars)

	if cfg.FirmwareDir == "" {
		cfg.FirmwareDir = DefaultFirmwareDir
	}

	cfg.FirmwareDir = expand(cfg.FirmwareDir, vars)

	for i := range cfg.ExtraImages {
		cfg.ExtraImages[i].Path = expand(cfg.ExtraImages[i].Path, vars)
	}

	for _, image := range cfg.Images() {
		if err := image.Validate(); err != nil {
			return err
		}
	}

	if cfg.FlashPort == "" {
		cfg.FlashPort = DefaultFlashPort
	}

	if cfg.FlashBaud == 0 {
		cfg.FlashBaud = DefaultFlashBaud
	}

	if cfg.FlashBaud < 0 {
		return fmt.Errorf("%w: %d", errBadFlashBaud, cfg.FlashBaud)
	}

	return nil
}

// Template returns a starting configuration for an M5Stack AtomS3 project.
func Template() *Config {
	return &Config{
		BuildDir:    "${PROJECT_DIR}/.pio/build/m5stack-atoms3",
		ProjectDir:  DefaultProjectDir,
		ProgName:    DefaultProgName,
		AppOffset:   DefaultAppOffset,
		AppBinary:   DefaultAppBinary,
		FirmwareDir: DefaultFirmwareDir,
		Board: firmware.BoardConfig{
			firmware.KeyChip:      firmware.DefaultChip,
			firmware.KeyFlashSize: firmware.DefaultFlashSize,
			firmware.KeyFlashFreq: firmware.DefaultFlashFreqCode,
			firmware.KeyFlashMode: firmware.DefaultFlashMode,
		},
		ExtraImages: []firmware.FlashImage{
			{Offset: "0x0", Path: "${BUILD_DIR}/bootloader.bin"},
			{Offset: "0x8000", Path: "${BUILD_DIR}/partitions.bin"},
		},
		MergeTool: []string{"esptool.py"},
		FlashPort: DefaultFlashPort,
		FlashBaud: DefaultFlashBaud,
	}
}

func expand(s string, vars map[string]string) string {
	return os.Expand(s, func(key string) string {
		if value, ok := vars[key]; ok {
			return value
		}

		return os.Getenv(key)
	})
}

func projectNameFromDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}

	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errProjectNameRequired
	}

	return name, nil
}
