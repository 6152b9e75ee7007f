package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSourceURL is the UCI Machine Learning Repository archive of the
// Online Retail dataset.
const DefaultSourceURL = "https://archive.ics.uci.edu/static/public/352/online+retail.zip"

var ErrDownload = errors.New("dataset download failed")

// Source says where the dataset lives locally and where to fetch it from.
type Source struct {
	URL      string
	Dir      string
	Archive  string // archive file name inside Dir
	Workbook string // workbook file name inside Dir
}

func (s Source) ArchivePath() string  { return filepath.Join(s.Dir, s.Archive) }
func (s Source) WorkbookPath() string { return filepath.Join(s.Dir, s.Workbook) }

// EnsureDataset makes sure the workbook exists under Dir, downloading the
// archive and extracting it as needed. Steps whose output already exists are
// skipped. It returns the workbook path.
func EnsureDataset(ctx context.Context, client *http.Client, src Source, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(src.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	workbook := src.WorkbookPath()
	if exists(workbook) {
		return workbook, nil
	}

	archive := src.ArchivePath()
	if !exists(archive) {
		logger.Info("downloading dataset archive", "url", src.URL, "path", archive)
		if err := download(ctx, client, src.URL, archive); err != nil {
			logger.Error("dataset download failed", "url", src.URL, "error", err)
			return "", err
		}
		logger.Info("dataset archive downloaded", "path", archive)
	}

	logger.Info("extracting dataset archive", "path", archive, "dir", src.Dir)
	if err := extract(archive, src.Dir); err != nil {
		return "", fmt.Errorf("extract %s: %w", archive, err)
	}
	if !exists(workbook) {
		return "", fmt.Errorf("archive %s does not contain %s", archive, src.Workbook)
	}
	logger.Info("dataset extracted", "path", workbook)
	return workbook, nil
}

func download(ctx context.Context, client *http.Client, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", ErrDownload, url, resp.Status)
	}

	// Write to a temp file first so a broken transfer never leaves a
	// truncated archive behind.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func extract(archive, dir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes %s", f.Name, dir)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("entry %q: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
