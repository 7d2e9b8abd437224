package artifact

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/marcinbor85/gohex"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
	"github.com/oshokin/fwmerge/internal/esptool"
	"github.com/oshokin/fwmerge/internal/logger"
)

// hexLineLength is the number of data bytes per Intel HEX record.
const hexLineLength = 16

// HexExtension is appended to the latest alias stem for the HEX rendition.
const HexExtension = ".hex"

var errImageTooLarge = errors.New("image does not fit a 32-bit address space")

// PublishHex writes an Intel HEX rendition of the merged image next to the
// latest alias. The image is placed at the merged flash address (0x0).
func (r *FileRepository) PublishHex(ctx context.Context, pub *Publication) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := pub.stem(r.dir) + HexExtension

	if err := WriteHex(pub.Source, path); err != nil {
		pub.Errors = append(pub.Errors, fmt.Errorf("write hex: %w", err))
		return
	}

	pub.Extras = append(pub.Extras, path)
	logger.InfoKV(ctx, "Wrote Intel HEX firmware", "path", path)
}

// WriteHex converts a raw binary image into Intel HEX format.
func WriteHex(src, dst string) (err error) {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return err
	}

	if uint64(len(data)) > math.MaxUint32 {
		return errImageTooLarge
	}

	base, err := firmware.ParseOffset(esptool.FlashAddress)
	if err != nil {
		return err
	}

	mem := gohex.NewMemory()
	if err = mem.AddBinary(uint32(base), data); err != nil { //nolint:gosec // FlashAddress is 0x0.
		return fmt.Errorf("add binary: %w", err)
	}

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	return mem.DumpIntelHex(out, hexLineLength)
}
