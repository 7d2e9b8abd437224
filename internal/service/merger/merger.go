package merger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/fwmerge/internal/config"
	"github.com/oshokin/fwmerge/internal/domain/firmware"
	"github.com/oshokin/fwmerge/internal/esptool"
	"github.com/oshokin/fwmerge/internal/logger"
	"github.com/oshokin/fwmerge/internal/repository/artifact"
)

var errOutputNotFile = errors.New("merge destination exists and is not a regular file")

// merger runs a single post-build merge.
// It is unexported; callers should use Run.
type merger struct {
	// cfg is the validated build environment.
	cfg *config.Config
	// runner executes the merge tool.
	runner esptool.Runner
	// clock supplies the build timestamp.
	clock func() time.Time
	// out receives the operator report.
	out io.Writer
	// repo publishes the merged image into the firmware directory.
	repo artifact.Repository
}

func newMerger(cfg *config.Config, opts *Options) *merger {
	m := &merger{
		cfg:    cfg,
		runner: opts.Runner,
		clock:  opts.Clock,
		out:    opts.Stdout,
		repo:   artifact.NewFileRepository(cfg.FirmwareDir),
	}

	if m.runner == nil {
		m.runner = &esptool.ExecRunner{}
	}

	if m.clock == nil {
		m.clock = time.Now
	}

	if m.out == nil {
		m.out = os.Stdout
	}

	return m
}

// plan is everything derived from the configuration before the tool runs.
type plan struct {
	meta    firmware.Metadata
	builtAt time.Time
	name    string
	latest  string
	output  string
	images  []firmware.FlashImage
}

func (m *merger) plan() *plan {
	var (
		meta    = firmware.ResolveMetadata(m.cfg.Board)
		builtAt = m.clock()
		name    = meta.Filename(m.cfg.ProjectName, builtAt)
	)

	return &plan{
		meta:    meta,
		builtAt: builtAt,
		name:    name,
		latest:  meta.LatestFilename(m.cfg.ProjectName),
		output:  filepath.Join(m.cfg.BuildDir, name),
		images:  m.cfg.Images(),
	}
}

func (m *merger) command(p *plan) (string, []string) {
	command := esptool.Command{Tool: m.cfg.MergeTool}

	return command.Merge(esptool.MergeRequest{
		Metadata: p.meta,
		Output:   p.output,
		Images:   p.images,
	})
}

// Run merges the images and, on success, publishes the result.
func (m *merger) Run(ctx context.Context) (*Result, error) {
	p := m.plan()
	ctx = logger.WithKV(ctx, "project", m.cfg.ProjectName, "chip", p.meta.Chip)

	writeStartBanner(m.out, m.cfg.ProjectName)

	if len(m.cfg.ExtraImages) == 0 {
		logger.WarnKV(ctx, "No bootloader or partition table configured, merging the application image only",
			"app", m.cfg.AppBinary)
		writeAppOnlyWarning(m.out)
	}

	if err := removeStale(ctx, p.output); err != nil {
		return nil, err
	}

	toolErr := m.runTool(ctx, p)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("merge interrupted: %w", ctxErr)
	}

	result := &Result{
		Output:   p.output,
		Metadata: p.meta,
	}

	info, err := os.Stat(p.output)
	if errors.Is(err, os.ErrNotExist) {
		logger.ErrorKV(ctx, "Merged firmware was not produced", "path", p.output)
		writeFailureReport(m.out, p.output, toolErr)

		return result, nil
	}

	if err != nil {
		return nil, fmt.Errorf("stat merged firmware: %w", err)
	}

	if toolErr != nil && !m.cfg.TrustOutputOnly {
		if err = os.Remove(p.output); err != nil {
			return nil, fmt.Errorf("remove output of failed merge: %w", err)
		}

		logger.WarnKV(ctx, "Discarded output of failed merge", "path", p.output)
		writeFailureReport(m.out, p.output, toolErr)

		return result, nil
	}

	result.Merged = true
	result.Size = info.Size()

	logger.InfoKV(ctx, "Firmware merged", "path", p.output, "size", result.Size)

	writeSuccessReport(m.out, &successReport{
		project: m.cfg.ProjectName,
		meta:    p.meta,
		path:    p.output,
		size:    result.Size,
		port:    m.cfg.FlashPort,
		baud:    m.cfg.FlashBaud,
	})

	result.Publication = m.publish(ctx, p)

	writePublication(m.out, result.Publication)

	return result, nil
}

// removeStale deletes a leftover image at the destination path.
// Anything other than a regular file is left alone and reported.
func removeStale(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("stat stale firmware: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, errOutputNotFile)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale firmware: %w", err)
	}

	logger.InfoKV(ctx, "Removed stale firmware", "path", path)

	return nil
}

// runTool runs esptool merge_bin. Its error is returned for reporting only;
// success is decided by the caller.
func (m *merger) runTool(ctx context.Context, p *plan) error {
	name, args := m.command(p)

	logger.InfoKV(ctx, "Running merge tool", "command", esptool.Line(name, args))

	if err := m.runner.Run(ctx, name, args); err != nil {
		logger.ErrorKV(ctx, "Merge tool failed", "error", err)
		return err
	}

	return nil
}

// publish copies the image into the firmware directory. Failures are logged
// as warnings and kept in the publication; they never fail the run.
func (m *merger) publish(ctx context.Context, p *plan) *artifact.Publication {
	pub := m.repo.Publish(ctx, p.output, p.name, p.latest)

	if m.cfg.Hex {
		m.repo.PublishHex(ctx, pub)
	}

	if m.cfg.Manifest {
		m.repo.PublishManifest(ctx, pub, artifact.NewManifest(m.cfg.ProjectName, p.meta, p.images, p.builtAt))
	}

	for _, err := range pub.Errors {
		logger.WarnKV(ctx, "Failed to publish firmware", "dir", m.cfg.FirmwareDir, "error", err)
	}

	return pub
}
