// Package archive downloads crackme archives and unpacks them.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

const progressInterval = 100 * time.Millisecond

// Source opens an archive download. The returned size is -1 when unknown.
type Source interface {
	DownloadArchive(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Progress is a snapshot of a running download.
type Progress struct {
	Done  int64
	Total int64
}

// Fraction returns the completed share, or 0 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// DirName returns the directory a record's archive is unpacked into: its name
// when that is a plain local file name, its id otherwise.
func DirName(r *crackme.Record) string {
	name := strings.TrimSpace(r.Name)
	if name == "" || !filepath.IsLocal(name) || strings.ContainsAny(name, `/\`) {
		return r.ID
	}
	return name
}

// Download fetches url into destPath through a ".part" file that is renamed
// once complete and removed on failure. onProgress, if set, is called at most every 100ms and once
// more when the body is exhausted.
func Download(ctx context.Context, src Source, url, destPath string, onProgress func(Progress)) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	body, size, err := src.DownloadArchive(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	partPath := destPath + ".part"
	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	// Downloads are never resumed, so a partial file is useless.
	done := false
	defer func() {
		f.Close()
		if !done {
			os.Remove(partPath)
		}
	}()

	p := Progress{Total: size}
	var last time.Time
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing file: %w", werr)
			}
			p.Done += int64(n)
			if onProgress != nil && time.Since(last) >= progressInterval {
				last = time.Now()
				onProgress(p)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}
	if onProgress != nil {
		onProgress(p)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(partPath, destPath); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}
	done = true
	return nil
}
