// Package storage moves uploaded files from their temporary upload location
// into permanent per-entity media directories. Moves are best-effort,
// post-commit steps: a failure is reported to the caller for logging but is
// never allowed to fail the entity the file belongs to.
package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MoveIntoPlace relocates tempPath into destDir under fileName and returns
// the final path. The destination directory is created when missing.
//
// Tolerated as non-fatal: the source already sitting at the destination
// (earlier retry won the move). A plain rename is attempted first; when the
// temp and media directories sit on different filesystems a copy-then-remove
// fallback is used.
func MoveIntoPlace(tempPath, destDir, fileName string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, fileName)

	if same, err := samePath(tempPath, dest); err == nil && same {
		return dest, nil
	}

	if err := os.Rename(tempPath, dest); err == nil {
		return dest, nil
	} else if errors.Is(err, fs.ErrNotExist) {
		// Source gone. If a previous attempt already delivered the file,
		// treat it as moved; otherwise surface the miss.
		if _, statErr := os.Stat(dest); statErr == nil {
			return dest, nil
		}
		return "", err
	}

	// Rename failed for another reason (commonly EXDEV). Copy then remove.
	if err := copyFile(tempPath, dest); err != nil {
		return "", err
	}
	_ = os.Remove(tempPath)
	return dest, nil
}

// samePath reports whether a and b resolve to the same file location.
func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
