package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yeka/zip"
)

// DefaultPasswords are the passwords crackme archives are usually packed with.
var DefaultPasswords = []string{"crackmes.one", "crackmes.de"}

// ErrNoPassword is returned for an encrypted member none of the passwords open.
var ErrNoPassword = errors.New("no password opens member")

// UnsafePathError reports a member whose name would land outside the
// destination directory.
type UnsafePathError struct {
	Name string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe path in archive: %q", e.Name)
}

// Extract unpacks zipPath into destDir, trying each password on encrypted
// members in order. Members no password opens are skipped with a warning.
// It returns the paths written.
func Extract(zipPath, destDir string, passwords []string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	var written []string
	for _, f := range r.File {
		if !filepath.IsLocal(f.Name) {
			return written, &UnsafePathError{Name: f.Name}
		}
		dst := filepath.Join(destDir, filepath.FromSlash(f.Name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return written, fmt.Errorf("creating directory: %w", err)
			}
			continue
		}

		err := extractMember(f, dst, passwords)
		if errors.Is(err, ErrNoPassword) {
			slog.Warn("skipping archive member", "archive", zipPath, "member", f.Name, "err", err)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func extractMember(f *zip.File, dst string, passwords []string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if !f.IsEncrypted() {
		return writeMember(f, dst)
	}
	for _, pw := range passwords {
		f.SetPassword(pw)
		err := writeMember(f, dst)
		if err == nil {
			return nil
		}
		var re *readError
		if !errors.As(err, &re) {
			return err
		}
		slog.Debug("archive password rejected", "member", f.Name, "err", err)
	}
	return ErrNoPassword
}

// readError marks a failure to decrypt or decompress a member, as opposed to
// a failure writing it out.
type readError struct {
	err error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

type memberReader struct {
	r io.Reader
}

func (m memberReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err: err}
	}
	return n, err
}

// writeMember decompresses f into dst through a ".part" file, so a wrong
// password never leaves a truncated member behind. Decrypt and decompress
// failures are returned as *readError.
func writeMember(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return &readError{err: err}
	}
	defer rc.Close()

	partPath := dst + ".part"
	out, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	if _, err := io.Copy(out, memberReader{r: rc}); err != nil {
		out.Close()
		os.Remove(partPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partPath)
		return err
	}
	return os.Rename(partPath, dst)
}
