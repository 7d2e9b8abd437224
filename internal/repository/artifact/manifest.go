package artifact

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
	"github.com/oshokin/fwmerge/internal/logger"
	"github.com/oshokin/fwmerge/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ManifestExtension is appended to the latest alias stem for the manifest.
	ManifestExtension = ".yaml"

	// DefaultChecksumFunction is used to fingerprint published images.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// manifestPermissions is the file mode of written manifests.
	manifestPermissions os.FileMode = 0o644
)

var errHashUnavailable = errors.New("hash function unavailable")

// Manifest describes a published firmware release.
type Manifest struct {
	// Version is the fwmerge version that produced the image.
	Version string `yaml:"fwmerge_version"`
	// Project is the project name embedded in the filenames.
	Project string `yaml:"project"`
	// Firmware is the timestamped image name.
	Firmware string `yaml:"firmware"`
	// Latest is the alias image name.
	Latest string `yaml:"latest"`
	// Size is the image size in bytes.
	Size int64 `yaml:"size"`
	// Checksum is the base64-encoded SHA-512 of the image.
	Checksum string `yaml:"checksum"`
	// BuiltAt is the timestamp embedded in Firmware.
	BuiltAt time.Time `yaml:"built_at"`
	// Target holds the flash parameters passed to the merge tool.
	Target firmware.Metadata `yaml:"target"`
	// Images are the merged fragments in flash-address order.
	Images []firmware.FlashImage `yaml:"images"`
}

// NewManifest produces a Manifest for project; the file-derived fields are
// filled in by PublishManifest.
func NewManifest(project string, meta firmware.Metadata, images []firmware.FlashImage, builtAt time.Time) *Manifest {
	return &Manifest{
		Version:  version.Short(),
		Project:  project,
		Firmware: meta.Filename(project, builtAt),
		Latest:   meta.LatestFilename(project),
		BuiltAt:  builtAt,
		Target:   meta,
		Images:   append([]firmware.FlashImage(nil), images...),
	}
}

// PublishManifest fills size and checksum from the published source and
// writes the manifest next to the latest alias.
func (r *FileRepository) PublishManifest(ctx context.Context, pub *Publication, manifest *Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := pub.stem(r.dir) + ManifestExtension

	if err := writeManifest(pub.Source, path, manifest); err != nil {
		pub.Errors = append(pub.Errors, fmt.Errorf("write manifest: %w", err))
		return
	}

	pub.Extras = append(pub.Extras, path)
	logger.InfoKV(ctx, "Wrote release manifest", "path", path, "checksum", manifest.Checksum)
}

func writeManifest(src, dst string, manifest *Manifest) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	checksum, err := GetFileChecksum(src)
	if err != nil {
		return err
	}

	manifest.Size = info.Size()
	manifest.Checksum = base64.StdEncoding.EncodeToString(checksum)

	contents, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Clean(dst), contents, manifestPermissions)
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
