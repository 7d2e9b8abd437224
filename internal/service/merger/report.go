package merger

import (
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
	"github.com/oshokin/fwmerge/internal/esptool"
	"github.com/oshokin/fwmerge/internal/repository/artifact"
)

const bannerWidth = 80

//nolint:gochecknoglobals // Constant rule, built once.
var banner = strings.Repeat("=", bannerWidth)

// successReport carries the values printed after a successful merge.
type successReport struct {
	project string
	meta    firmware.Metadata
	path    string
	size    int64
	port    string
	baud    int
}

func writeStartBanner(w io.Writer, project string) {
	var builder strings.Builder

	builder.WriteString("\n" + banner + "\n")
	builder.WriteString("Merging firmware for " + project + "\n")
	builder.WriteString(banner + "\n")

	_, _ = io.WriteString(w, builder.String())
}

func writeAppOnlyWarning(w io.Writer) {
	_, _ = io.WriteString(w, "\n⚠️  No bootloader or partition table given (--image or extra_images): "+
		"the merged image holds the application only\n")
}

func writeSuccessReport(w io.Writer, r *successReport) {
	var builder strings.Builder

	builder.WriteString("\n" + banner + "\n")
	builder.WriteString("✅ Firmware merged successfully\n")
	builder.WriteString(banner + "\n")
	fmt.Fprintf(&builder, "Project:     %s\n", r.project)
	fmt.Fprintf(&builder, "Chip:        %s\n", strings.ToUpper(r.meta.Chip))
	fmt.Fprintf(&builder, "Flash size:  %s\n", r.meta.FlashSize)
	fmt.Fprintf(&builder, "Flash freq:  %s\n", r.meta.FlashFreq)
	fmt.Fprintf(&builder, "Flash mode:  %s\n", r.meta.FlashMode)
	fmt.Fprintf(&builder, "Size:        %.2f KB (%d bytes)\n", float64(r.size)/1024, r.size)
	fmt.Fprintf(&builder, "Path:        %s\n", r.path)
	builder.WriteString("\nFlash command:\n")
	builder.WriteString("  " + esptool.FlashCommand(r.meta.Chip, r.path) + "\n")
	builder.WriteString("\nOr with an explicit port and baud rate:\n")
	builder.WriteString("  " + esptool.FlashCommandOnPort(r.meta.Chip, r.port, r.baud, r.path) + "\n")

	_, _ = io.WriteString(w, builder.String())
}

func writePublication(w io.Writer, pub *artifact.Publication) {
	var builder strings.Builder

	if pub.Archive != "" {
		builder.WriteString("\nCopied to: " + pub.Archive + "\n")
	}

	if pub.Latest != "" {
		builder.WriteString("Latest:    " + pub.Latest + "\n")
	}

	for _, extra := range pub.Extras {
		builder.WriteString("Extra:     " + extra + "\n")
	}

	for _, err := range pub.Errors {
		builder.WriteString("\n⚠️  Failed to copy firmware to the firmware directory: " + err.Error() + "\n")
	}

	builder.WriteString(banner + "\n\n")

	_, _ = io.WriteString(w, builder.String())
}

func writeFailureReport(w io.Writer, output string, toolErr error) {
	var builder strings.Builder

	builder.WriteString("\n❌ Firmware merge failed!\n")

	if toolErr != nil {
		builder.WriteString("Merge tool error: " + toolErr.Error() + "\n")
	}

	builder.WriteString("Expected output: " + output + "\n")

	_, _ = io.WriteString(w, builder.String())
}
