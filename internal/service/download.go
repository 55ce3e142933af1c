package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	downloadShare   = 80
	extractPercent  = 85
	verifyPercent   = 95
	bytesPerMB      = 1024 * 1024
	maxArchiveFiles = 10000
)

type archiveJob struct {
	url          string
	dest         string
	extractLabel string
	// verify checks the extracted tree rooted at root before it replaces
	// anything in dest.
	verify func(root string) error
}

func (s *Service) runDownloadModel(ctx context.Context, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	name, _ := args["model"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("model name is required")
	}
	if settings.IsBundledModel(name) {
		return settings.TaskResult{"model": name, "bundled": true}, nil
	}
	downloadURL := strings.TrimSpace(s.opts.ModelURLs[name])
	if downloadURL == "" {
		return nil, fmt.Errorf("no download URL for model: %s", name)
	}
	if strings.TrimSpace(s.opts.ModelsDir) == "" {
		return nil, errors.New("models directory is not configured")
	}

	modelDir := filepath.Join(s.opts.ModelsDir, name)
	err := s.installArchive(ctx, archiveJob{
		url:          downloadURL,
		dest:         s.opts.ModelsDir,
		extractLabel: "Extracting model...",
		verify: func(root string) error {
			if !dirHasFiles(filepath.Join(root, name)) {
				return errors.New("model extraction failed - files not found")
			}

			return nil
		},
	}, listener)
	if err != nil {
		return nil, err
	}

	return settings.TaskResult{"model": name, "path": modelDir}, nil
}

func (s *Service) runGPUInstall(ctx context.Context, _ settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	packageURL := strings.TrimSpace(s.opts.GPUPackageURL)
	if packageURL == "" {
		return nil, errors.New("GPU package URL is not configured")
	}
	if strings.TrimSpace(s.opts.GPUDir) == "" {
		return nil, errors.New("GPU library directory is not configured")
	}

	err := s.installArchive(ctx, archiveJob{
		url:          packageURL,
		dest:         s.opts.GPUDir,
		extractLabel: "Extracting libraries...",
		verify: func(root string) error {
			if !dirHasFiles(root) {
				return errors.New("GPU libraries not found after extraction")
			}

			return nil
		},
	}, listener)
	if err != nil {
		return nil, err
	}

	return settings.TaskResult{
		"path":    s.opts.GPUDir,
		"message": "GPU support installed. Please restart the application.",
	}, nil
}

// installArchive downloads a zip archive into a temp file, then extracts
// and verifies it. Download progress covers 0-80%.
func (s *Service) installArchive(ctx context.Context, job archiveJob, listener settings.TaskListener) error {
	listener.OnProgress(0, "Connecting...")

	tmp, err := os.CreateTemp("", "murmurtone-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := s.download(ctx, job.url, tmp, listener); err != nil {
		_ = tmp.Close()

		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}

	listener.OnProgress(extractPercent, job.extractLabel)
	if err := os.MkdirAll(job.dest, 0o750); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	staging, err := os.MkdirTemp(job.dest, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()
	if err := extractZip(ctx, tmpPath, staging); err != nil {
		return err
	}

	listener.OnProgress(verifyPercent, "Verifying...")
	if job.verify != nil {
		if err := job.verify(staging); err != nil {
			return err
		}
	}
	if err := promoteEntries(staging, job.dest); err != nil {
		return err
	}
	listener.OnProgress(100, "Complete!")

	return nil
}

func (s *Service) download(ctx context.Context, rawURL string, dst io.Writer, listener settings.TaskListener) error {
	req, err := s.newRequest(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	counter := &progressWriter{total: resp.ContentLength, listener: listener, last: -1}
	if _, err := io.Copy(dst, io.TeeReader(resp.Body, counter)); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	return nil
}

// progressWriter reports download progress when the percentage changes.
// Unknown content lengths report nothing.
type progressWriter struct {
	total    int64
	written  int64
	last     int
	listener settings.TaskListener
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total <= 0 {
		return len(p), nil
	}
	percent := int(w.written * downloadShare / w.total)
	if percent != w.last {
		w.last = percent
		w.listener.OnProgress(percent, fmt.Sprintf("Downloading: %.1f / %.1f MB",
			float64(w.written)/bytesPerMB, float64(w.total)/bytesPerMB))
	}

	return len(p), nil
}

func extractZip(ctx context.Context, archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	if len(reader.File) > maxArchiveFiles {
		return fmt.Errorf("archive has too many entries: %d", len(reader.File))
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve target dir: %w", err)
	}
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(file.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes target dir: %s", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("create dir %s: %w", file.Name, err)
			}

			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", file.Name, err)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", file.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	// #nosec G304 -- target is checked to stay inside the extraction root.
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", file.Name, err)
	}
	// #nosec G110 -- archives come from configured release URLs.
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()

		return fmt.Errorf("extract %s: %w", file.Name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file.Name, err)
	}

	return nil
}

// promoteEntries moves every top-level entry of staging into dest,
// replacing entries of the same name.
func promoteEntries(staging, dest string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("read staging dir: %w", err)
	}
	for _, entry := range entries {
		target := filepath.Join(dest, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("replace %s: %w", entry.Name(), err)
		}
		if err := os.Rename(filepath.Join(staging, entry.Name()), target); err != nil {
			return fmt.Errorf("install %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func dirHasFiles(dir string) bool {
	entries, err := os.ReadDir(dir)

	return err == nil && len(entries) > 0
}
