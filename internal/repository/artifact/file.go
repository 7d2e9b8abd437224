package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/fwmerge/internal/logger"
)

// DefaultDirPermissions is used when creating the firmware directory.
const DefaultDirPermissions os.FileMode = 0o755

// Repository defines the publish operations the merge workflow depends on.
type Repository interface {
	Publish(ctx context.Context, src, name, latest string) *Publication
	PublishHex(ctx context.Context, pub *Publication)
	PublishManifest(ctx context.Context, pub *Publication, manifest *Manifest)
}

// Publication records what a publish run produced.
type Publication struct {
	// Source is the merged image in the build directory.
	Source string
	// Archive is the timestamped copy, empty if that copy failed.
	Archive string
	// Latest is the alias copy, empty if that copy failed.
	Latest string
	// Extras lists additional files (HEX, manifest) that were written.
	Extras []string
	// Errors holds one entry per failed step.
	Errors []error
}

// Files returns every file the publication wrote, in creation order.
func (p *Publication) Files() []string {
	files := make([]string, 0, 2+len(p.Extras))

	for _, path := range []string{p.Archive, p.Latest} {
		if path != "" {
			files = append(files, path)
		}
	}

	return append(files, p.Extras...)
}

// OK reports whether every publish step succeeded.
func (p *Publication) OK() bool {
	return len(p.Errors) == 0
}

// FileRepository writes published firmware into a single directory.
type FileRepository struct {
	// dir is the firmware output directory.
	dir string
	// mu serializes publish runs sharing a repository.
	mu sync.Mutex
}

// NewFileRepository creates a repository rooted at dir. The directory is
// created on first publish.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// Dir returns the firmware output directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

// Publish copies src into the firmware directory twice: as name and as the
// latest alias, overwriting any previous alias. The two copies are
// independent; a failure of one does not undo or skip the other.
func (r *FileRepository) Publish(ctx context.Context, src, name, latest string) *Publication {
	r.mu.Lock()
	defer r.mu.Unlock()

	pub := &Publication{Source: src}

	if err := os.MkdirAll(r.dir, DefaultDirPermissions); err != nil {
		pub.Errors = append(pub.Errors, fmt.Errorf("create firmware dir: %w", err))
		return pub
	}

	archive := filepath.Join(r.dir, name)
	if err := CopyFile(src, archive); err != nil {
		pub.Errors = append(pub.Errors, fmt.Errorf("copy %s: %w", name, err))
	} else {
		pub.Archive = archive
		logger.InfoKV(ctx, "Copied firmware", "path", archive)
	}

	latestPath := filepath.Join(r.dir, latest)
	if err := CopyFile(src, latestPath); err != nil {
		pub.Errors = append(pub.Errors, fmt.Errorf("copy %s: %w", latest, err))
	} else {
		pub.Latest = latestPath
		logger.InfoKV(ctx, "Updated latest firmware", "path", latestPath)
	}

	return pub
}

// stem returns the latest alias path without its extension, or the source
// stem when the alias copy failed.
func (p *Publication) stem(dir string) string {
	base := p.Latest
	if base == "" {
		base = filepath.Join(dir, filepath.Base(p.Source))
	}

	return strings.TrimSuffix(base, filepath.Ext(base))
}
