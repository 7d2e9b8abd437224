package merger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/fwmerge/internal/config"
	"github.com/oshokin/fwmerge/internal/domain/firmware"
	"github.com/oshokin/fwmerge/internal/esptool"
	"github.com/oshokin/fwmerge/internal/logger"
	"github.com/oshokin/fwmerge/internal/repository/artifact"
)

// Options contains inputs for the merger entry point. Non-empty override
// fields win over the configuration file.
type Options struct {
	// ConfigPath is the build environment YAML. When empty, fwmerge.yaml is
	// used if present.
	ConfigPath string
	// BuildDir overrides build_dir.
	BuildDir string
	// ProjectDir overrides project_dir.
	ProjectDir string
	// ProjectName overrides project_name.
	ProjectName string
	// ProgName overrides prog_name.
	ProgName string
	// AppOffset overrides app_offset.
	AppOffset string
	// Images replaces extra_images; each entry is "path:offset".
	Images []string
	// Board is merged over the configured board values.
	Board map[string]string
	// Tool replaces merge_tool.
	Tool []string

	// Runner executes the merge tool. Defaults to esptool.ExecRunner.
	Runner esptool.Runner
	// Clock supplies the build timestamp. Defaults to time.Now.
	Clock func() time.Time
	// Stdout receives the operator report. Defaults to os.Stdout.
	Stdout io.Writer
}

// Result describes the outcome of a merge run.
type Result struct {
	// Merged is true when the merged image was produced.
	Merged bool
	// Output is the merged image path in the build directory.
	Output string
	// Size is the merged image size in bytes.
	Size int64
	// Metadata holds the resolved flash parameters.
	Metadata firmware.Metadata
	// Publication lists the published copies; nil when the merge failed.
	Publication *artifact.Publication
}

// ErrMergeFailed is returned by the CLI in strict mode when no image was produced.
var ErrMergeFailed = errors.New("firmware merge failed")

// Run executes the merge workflow. A merge that produces no image is not an
// error: it is reported on Stdout and signalled via Result.Merged. Errors
// are returned only for configuration problems and filesystem failures
// outside the publish step.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "fwmerge")

	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("resolve build environment: %w", err)
	}

	m := newMerger(cfg, opts)

	return m.Run(ctx)
}

// Preview describes what a merge run would do, without running anything.
type Preview struct {
	// Config is the resolved build environment.
	Config *config.Config
	// Metadata holds the resolved flash parameters.
	Metadata firmware.Metadata
	// Output is the merged image path for the current time.
	Output string
	// Latest is the alias path in the firmware directory.
	Latest string
	// Command is the merge tool command line.
	Command string
}

// Describe resolves the build environment and renders the planned merge.
func Describe(opts *Options) (*Preview, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("resolve build environment: %w", err)
	}

	m := newMerger(cfg, opts)
	p := m.plan()

	return &Preview{
		Config:   cfg,
		Metadata: p.meta,
		Output:   p.output,
		Latest:   filepath.Join(cfg.FirmwareDir, p.latest),
		Command:  esptool.Line(m.command(p)),
	}, nil
}

// ResolveConfig loads the build environment and applies the overrides in opts.
func ResolveConfig(opts *Options) (*config.Config, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err = applyOverrides(cfg, opts); err != nil {
		return nil, err
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfig reads an explicit path strictly; the default file is optional.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.Load(config.DefaultConfigFilename)
	if errors.Is(err, os.ErrNotExist) {
		return new(config.Config), nil
	}

	return cfg, err
}

func applyOverrides(cfg *config.Config, opts *Options) error {
	overrides := []struct {
		value  string
		target *string
	}{
		{opts.BuildDir, &cfg.BuildDir},
		{opts.ProjectDir, &cfg.ProjectDir},
		{opts.ProjectName, &cfg.ProjectName},
		{opts.ProgName, &cfg.ProgName},
		{opts.AppOffset, &cfg.AppOffset},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}

	if len(opts.Images) > 0 {
		images := make([]firmware.FlashImage, 0, len(opts.Images))

		for _, spec := range opts.Images {
			image, err := firmware.ParseFlashImage(spec)
			if err != nil {
				return err
			}

			images = append(images, image)
		}

		cfg.ExtraImages = images
	}

	if len(opts.Board) > 0 {
		if cfg.Board == nil {
			cfg.Board = make(firmware.BoardConfig, len(opts.Board))
		}

		maps.Copy(cfg.Board, opts.Board)
	}

	if len(opts.Tool) > 0 {
		cfg.MergeTool = append([]string(nil), opts.Tool...)
	}

	return nil
}
