package artifact

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcinbor85/gohex"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/fwmerge/internal/domain/firmware"
)

const (
	archiveName = "esp32s3_demo_8MB_20250101_120000.bin"
	latestName  = "esp32s3_demo_8MB_latest.bin"
)

func writeSource(t *testing.T, dir string, contents []byte) string {
	t.Helper()

	src := filepath.Join(dir, archiveName)
	require.NoError(t, os.WriteFile(src, contents, 0o644))

	return src
}

// TestCopyFile_PreservesContentAndTimes mirrors shutil.copy2 semantics.
func TestCopyFile_PreservesContentAndTimes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, []byte{0xe9, 0x03, 0x02, 0x4f})

	mtime := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(dir, "copy.bin")
	require.NoError(t, os.WriteFile(dst, []byte("much longer previous contents"), 0o600))
	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{0xe9, 0x03, 0x02, 0x4f}, got)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(mtime))

	require.ErrorIs(t, CopyFile(filepath.Join(dir, "missing.bin"), dst), os.ErrNotExist)
}

// TestPublish_CreatesArchiveAndLatest checks the two copies and the nested directory creation.
func TestPublish_CreatesArchiveAndLatest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, []byte("first"))

	repo := NewFileRepository(filepath.Join(dir, "project", "firmware"))
	pub := repo.Publish(context.Background(), src, archiveName, latestName)
	require.True(t, pub.OK(), pub.Errors)
	require.Equal(t, filepath.Join(repo.Dir(), archiveName), pub.Archive)
	require.Equal(t, filepath.Join(repo.Dir(), latestName), pub.Latest)
	require.Equal(t, []string{pub.Archive, pub.Latest}, pub.Files())

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The latest alias is overwritten by a later publish.
	require.NoError(t, os.WriteFile(src, []byte("second"), 0o644))

	pub = repo.Publish(context.Background(), src, "esp32s3_demo_8MB_20250101_120001.bin", latestName)
	require.True(t, pub.OK(), pub.Errors)

	latest, err := os.ReadFile(pub.Latest)
	require.NoError(t, err)
	require.Equal(t, "second", string(latest))
}

// TestPublish_CollectsErrors ensures failures are reported instead of returned early.
func TestPublish_CollectsErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	repo := NewFileRepository(filepath.Join(dir, "firmware"))
	pub := repo.Publish(context.Background(), filepath.Join(dir, "missing.bin"), archiveName, latestName)
	require.False(t, pub.OK())
	require.Len(t, pub.Errors, 2)
	require.Empty(t, pub.Files())

	// A regular file where the directory should be blocks creation.
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	pub = NewFileRepository(blocker).Publish(context.Background(), writeSource(t, dir, []byte("x")), archiveName, latestName)
	require.Len(t, pub.Errors, 1)
	require.Empty(t, pub.Files())
}

// TestPublishHex writes a HEX file that parses back into the original image.
func TestPublishHex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	image := make([]byte, 100)

	for i := range image {
		image[i] = byte(i)
	}

	src := writeSource(t, dir, image)
	repo := NewFileRepository(filepath.Join(dir, "firmware"))

	pub := repo.Publish(context.Background(), src, archiveName, latestName)
	repo.PublishHex(context.Background(), pub)
	require.True(t, pub.OK(), pub.Errors)
	require.Equal(t, []string{filepath.Join(repo.Dir(), "esp32s3_demo_8MB_latest.hex")}, pub.Extras)

	f, err := os.Open(pub.Extras[0])
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	mem := gohex.NewMemory()
	require.NoError(t, mem.ParseIntelHex(f))

	segments := mem.GetDataSegments()
	require.NotEmpty(t, segments)
	require.Equal(t, uint32(0), segments[0].Address)
	require.Equal(t, image, mem.ToBinary(0, uint32(len(image)), 0xff))
}

// TestPublishManifest writes a manifest whose checksum matches the image.
func TestPublishManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSource(t, dir, []byte("merged image"))
	repo := NewFileRepository(filepath.Join(dir, "firmware"))

	meta := firmware.ResolveMetadata(nil)
	builtAt := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	images := []firmware.FlashImage{{Offset: "0x0", Path: "bootloader.bin"}, {Offset: "0x10000", Path: "firmware.bin"}}

	pub := repo.Publish(context.Background(), src, archiveName, latestName)
	repo.PublishManifest(context.Background(), pub, NewManifest("demo", meta, images, builtAt))
	require.True(t, pub.OK(), pub.Errors)
	require.Len(t, pub.Extras, 1)

	contents, err := os.ReadFile(pub.Extras[0])
	require.NoError(t, err)

	var manifest Manifest
	require.NoError(t, yaml.Unmarshal(contents, &manifest))

	checksum, err := GetFileChecksum(src)
	require.NoError(t, err)

	require.Equal(t, archiveName, manifest.Firmware)
	require.Equal(t, latestName, manifest.Latest)
	require.Equal(t, int64(len("merged image")), manifest.Size)
	require.Equal(t, base64.StdEncoding.EncodeToString(checksum), manifest.Checksum)
	require.Equal(t, meta, manifest.Target)
	require.Equal(t, images, manifest.Images)
	require.True(t, builtAt.Equal(manifest.BuiltAt))
}
