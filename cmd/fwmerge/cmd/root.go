package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fwmerge/internal/config"
	"github.com/oshokin/fwmerge/internal/logger"
	"github.com/oshokin/fwmerge/internal/service/merger"
	"github.com/oshokin/fwmerge/internal/version"
)

var (
	// options collects the build environment overrides shared by all subcommands.
	options = new(merger.Options)

	// logLevel is the minimum level of diagnostic messages.
	logLevel string

	// strict turns a failed merge into a non-zero exit status.
	strict bool

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd merges the firmware images of a finished build.
	rootCmd = &cobra.Command{
		Use:   "fwmerge",
		Short: "Merge ESP32 bootloader, partition table and application into one flashable image",
		Long: `fwmerge runs after a PlatformIO build. It calls esptool merge_bin to combine
the bootloader, partition table and application at their flash offsets,
names the result {chip}_{project}_{flash_size}_{timestamp}.bin and copies it
into the project's firmware directory next to a "latest" alias.

Run "fwmerge init --platformio" to write the post-build hook and reference it
from platformio.ini:
  extra_scripts = post:fwmerge_post.py

The hook passes the build's flash images and board values, for example:
  fwmerge --build-dir $BUILD_DIR --project-dir $PROJECT_DIR --project $PIOENV \
    --app-offset 0x10000 \
    --image $BUILD_DIR/bootloader.bin:0x0 --image $BUILD_DIR/partitions.bin:0x8000 \
    --board build.mcu=esp32s3 --board upload.flash_size=8MB`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.Stdout = cmd.OutOrStdout()

			result, err := merger.Run(ctx, options)
			if err != nil {
				return err
			}

			if strict && !result.Merged {
				return merger.ErrMergeFailed
			}

			return nil
		},
	}
)

// Execute runs the fwmerge CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&options.ConfigPath, "config", "c", "",
		"path to the build environment file (default "+config.DefaultConfigFilename+" if present)")
	flags.StringVar(&options.BuildDir, "build-dir", "", "build output directory ($BUILD_DIR)")
	flags.StringVar(&options.ProjectDir, "project-dir", "", "project root directory ($PROJECT_DIR)")
	flags.StringVar(&options.ProjectName, "project", "", "project name embedded in firmware names ($PIOENV)")
	flags.StringVar(&options.ProgName, "prog-name", "", "application binary name without extension ($PROGNAME)")
	flags.StringVar(&options.AppOffset, "app-offset", "", "flash offset of the application image ($ESP32_APP_OFFSET)")
	flags.StringArrayVar(&options.Images, "image", nil, "extra flash image as path:offset, in flash order (repeatable)")
	flags.StringToStringVar(&options.Board, "board", nil, "board configuration value as key=value, e.g. build.mcu=esp32s3")
	flags.StringSliceVar(&options.Tool, "tool", nil, "merge tool invocation, e.g. python3,-m,esptool")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when no merged image was produced")

	rootCmd.AddCommand(infoCmd, initCmd)
}
