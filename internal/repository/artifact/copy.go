package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst byte for byte, keeping the permission bits and
// modification time. An existing dst is truncated and overwritten.
func CopyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	_, err = io.Copy(out, in)
	if err == nil {
		// OpenFile keeps the mode of an already existing destination.
		err = out.Chmod(info.Mode().Perm())
	}

	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}

	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set destination times: %w", err)
	}

	return nil
}
