package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/fwmerge/internal/service/merger"
)

// infoCmd prints the resolved build environment without merging.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the resolved flash parameters, file names and merge command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		preview, err := merger.Describe(options)
		if err != nil {
			return err
		}

		var builder strings.Builder

		fmt.Fprintf(&builder, "Project:      %s\n", preview.Config.ProjectName)
		fmt.Fprintf(&builder, "Chip:         %s\n", preview.Metadata.Chip)
		fmt.Fprintf(&builder, "Flash size:   %s\n", preview.Metadata.FlashSize)
		fmt.Fprintf(&builder, "Flash freq:   %s\n", preview.Metadata.FlashFreq)
		fmt.Fprintf(&builder, "Flash mode:   %s\n", preview.Metadata.FlashMode)
		fmt.Fprintf(&builder, "Output:       %s\n", preview.Output)
		fmt.Fprintf(&builder, "Latest:       %s\n", preview.Latest)
		builder.WriteString("Images:\n")

		for _, image := range preview.Config.Images() {
			fmt.Fprintf(&builder, "  %-10s %s\n", image.Offset, image.Path)
		}

		fmt.Fprintf(&builder, "Command:      %s\n", preview.Command)

		_, err = fmt.Fprint(cmd.OutOrStdout(), builder.String())

		return err
	},
}
