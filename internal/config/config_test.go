package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
)

// TestValidate_RequiresBuildDir checks the only mandatory field.
func TestValidate_RequiresBuildDir(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(new(Config)), errBuildDirRequired)
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestValidate_Defaults verifies defaults and variable expansion.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	project := filepath.Join(t.TempDir(), "bbn_wave_freq_m5atomS3")

	cfg := &Config{
		ProjectDir: project,
		BuildDir:   "${PROJECT_DIR}/.pio/build/atoms3",
		ExtraImages: []firmware.FlashImage{
			{Offset: "0x0", Path: "${BUILD_DIR}/bootloader.bin"},
		},
	}
	require.NoError(t, Validate(cfg))

	buildDir := project + "/.pio/build/atoms3"
	require.Equal(t, buildDir, cfg.BuildDir)
	require.Equal(t, "bbn_wave_freq_m5atomS3", cfg.ProjectName)
	require.Equal(t, DefaultProgName, cfg.ProgName)
	require.Equal(t, DefaultAppOffset, cfg.AppOffset)
	require.Equal(t, buildDir+"/firmware.bin", cfg.AppBinary)
	require.Equal(t, project+"/firmware", cfg.FirmwareDir)
	require.Equal(t, buildDir+"/bootloader.bin", cfg.ExtraImages[0].Path)
	require.Equal(t, DefaultFlashPort, cfg.FlashPort)
	require.Equal(t, DefaultFlashBaud, cfg.FlashBaud)

	images := cfg.Images()
	require.Len(t, images, 2)
	require.Equal(t, firmware.FlashImage{Offset: "0x10000", Path: cfg.AppBinary}, images[1])

	// Validation is idempotent.
	before := cfg.Clone()
	require.NoError(t, Validate(cfg))
	require.Equal(t, before, cfg)
}

// TestValidate_BadValues rejects malformed offsets and baud rates.
func TestValidate_BadValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{BuildDir: "build", ProjectName: "demo", AppOffset: "sixteen"}
	require.ErrorIs(t, Validate(cfg), firmware.ErrBadOffset)

	cfg = &Config{
		BuildDir:    "build",
		ProjectName: "demo",
		ExtraImages: []firmware.FlashImage{{Offset: "0x0"}},
	}
	require.ErrorIs(t, Validate(cfg), firmware.ErrEmptyImagePath)

	cfg = &Config{BuildDir: "build", ProjectName: "demo", FlashBaud: -1}
	require.ErrorIs(t, Validate(cfg), errBadFlashBaud)
}

// TestSaveLoadRoundtrip ensures the template is persisted unexpanded and loaded back.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)

	template := Template()
	require.NoError(t, Save(path, template))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, template, loaded)
	require.Equal(t, "${PROJECT_DIR}/.pio/build/m5stack-atoms3", loaded.BuildDir)

	require.ErrorIs(t, Save(path, nil), errConfigIsNotSet)
}

// TestLoad_Missing reports os.ErrNotExist for absent files.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
