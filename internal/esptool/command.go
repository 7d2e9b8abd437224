package esptool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
)

const (
	// DefaultTool is the merge tool invocation used when none is configured.
	DefaultTool = "esptool.py"

	// FlashAddress is where a merged image starts in flash.
	FlashAddress = "0x0"

	mergeSubcommand = "merge_bin"
	writeSubcommand = "write_flash"
)

// MergeRequest describes a single merge_bin invocation.
type MergeRequest struct {
	// Metadata carries chip and flash parameters.
	Metadata firmware.Metadata
	// Output is the destination path of the merged image.
	Output string
	// Images are the fragments in flash-address order.
	Images []firmware.FlashImage
}

// MergeArgs renders the esptool arguments for req. Images are interleaved as
// offset, path, offset, path...
func MergeArgs(req MergeRequest) []string {
	args := make([]string, 0, 11+2*len(req.Images))
	args = append(args,
		"--chip", req.Metadata.Chip,
		mergeSubcommand,
		"--output", req.Output,
		"--flash_mode", req.Metadata.FlashMode,
		"--flash_size", req.Metadata.FlashSize,
		"--flash_freq", req.Metadata.FlashFreq,
	)

	for _, image := range req.Images {
		args = append(args, image.Offset, image.Path)
	}

	return args
}

// Command is the configured way to start esptool, e.g. ["python3", "-m", "esptool"].
type Command struct {
	Tool []string
}

// Merge returns the executable and its full argument list for req.
func (c Command) Merge(req MergeRequest) (string, []string) {
	tool := c.Tool
	if len(tool) == 0 {
		tool = []string{DefaultTool}
	}

	args := make([]string, 0, len(tool)-1+11+2*len(req.Images))
	args = append(args, tool[1:]...)
	args = append(args, MergeArgs(req)...)

	return tool[0], args
}

// Line joins an executable and its arguments for logging.
func Line(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, part := range append([]string{name}, args...) {
		if strings.ContainsAny(part, " \t") {
			part = fmt.Sprintf("%q", part)
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, " ")
}

// FlashCommand is the short write_flash suggestion, referring to the file by base name.
func FlashCommand(chip, path string) string {
	return fmt.Sprintf("%s --chip %s %s %s %s",
		DefaultTool, chip, writeSubcommand, FlashAddress, filepath.Base(path))
}

// FlashCommandOnPort is the full write_flash suggestion with explicit port and baud rate.
func FlashCommandOnPort(chip, port string, baud int, path string) string {
	return fmt.Sprintf("%s --chip %s --port %s --baud %d %s %s %s",
		DefaultTool, chip, port, baud, writeSubcommand, FlashAddress, path)
}
