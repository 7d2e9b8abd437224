package firmware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrBadImageSpec is returned when an image description lacks the "path:offset" shape.
	ErrBadImageSpec = errors.New("image must be given as path:offset")
	// ErrBadOffset is returned when a flash offset is not a valid unsigned number.
	ErrBadOffset = errors.New("invalid flash offset")
	// ErrEmptyImagePath is returned when an image has no file path.
	ErrEmptyImagePath = errors.New("image path is empty")
)

// FlashImage is a binary fragment destined for a specific flash address.
type FlashImage struct {
	// Offset is the flash address exactly as passed to the merge tool (e.g. "0x8000").
	Offset string `yaml:"offset"`
	// Path is the location of the fragment on disk.
	Path string `yaml:"path"`
}

// Address parses Offset. Decimal, 0x hex and 0o octal forms are accepted.
func (i FlashImage) Address() (uint64, error) {
	return ParseOffset(i.Offset)
}

// Validate checks that the image has a path and a parsable offset.
func (i FlashImage) Validate() error {
	if strings.TrimSpace(i.Path) == "" {
		return fmt.Errorf("%w (offset %s)", ErrEmptyImagePath, i.Offset)
	}

	if _, err := i.Address(); err != nil {
		return fmt.Errorf("image %s: %w", i.Path, err)
	}

	return nil
}

// String renders the image in the same "path:offset" form ParseFlashImage accepts.
func (i FlashImage) String() string {
	return i.Path + ":" + i.Offset
}

// ParseOffset parses a flash address.
func ParseOffset(s string) (uint64, error) {
	addr, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrBadOffset, s)
	}

	return addr, nil
}

// ParseFlashImage parses "path:offset". The split happens at the last colon
// so Windows drive letters survive.
func ParseFlashImage(s string) (FlashImage, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return FlashImage{}, fmt.Errorf("%w: %q", ErrBadImageSpec, s)
	}

	image := FlashImage{
		Path:   s[:i],
		Offset: s[i+1:],
	}

	if err := image.Validate(); err != nil {
		return FlashImage{}, err
	}

	return image, nil
}
