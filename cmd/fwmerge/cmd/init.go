package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshokin/fwmerge/internal/config"
)

var (
	// force allows init to overwrite an existing file.
	force bool

	// withPlatformIO also writes the PlatformIO post-build hook.
	withPlatformIO bool

	errConfigExists = errors.New("file already exists (use --force to overwrite)")

	// initCmd writes a configuration template.
	initCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a build environment template for an M5Stack AtomS3 project",
		Long: `Write a build environment template for an M5Stack AtomS3 project.

With --platformio the post-build hook ` + config.PlatformIOScriptFilename + ` is written next to it.
Reference it from platformio.ini:
  extra_scripts = post:` + config.PlatformIOScriptFilename,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s: %w", path, errConfigExists)
			}

			if err := config.Save(path, config.Template()); err != nil {
				return err
			}

			written := []string{path}

			if withPlatformIO {
				script := filepath.Join(filepath.Dir(path), config.PlatformIOScriptFilename)
				if _, err := os.Stat(script); err == nil && !force {
					return fmt.Errorf("%s: %w", script, errConfigExists)
				}

				if err := config.SavePlatformIOScript(script); err != nil {
					return err
				}

				written = append(written, script)
			}

			for _, file := range written {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Wrote", file); err != nil {
					return err
				}
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&withPlatformIO, "platformio", false,
		"also write the PlatformIO post-build hook "+config.PlatformIOScriptFilename)
}
