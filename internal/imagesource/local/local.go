package local

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/vbonduro/pinboard/internal/imagesource"
)

// LocalImageSource reads images from the local filesystem. Absolute paths are
// used as given, which is what a file picker returns. Relative paths are
// resolved under basePath and may not escape it.
type LocalImageSource struct {
	basePath string
}

func NewLocalImageSource(basePath string) *LocalImageSource {
	return &LocalImageSource{basePath: basePath}
}

func (s *LocalImageSource) Open(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", imagesource.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close image file", "path", filePath, "error", cerr)
		}
	}()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", imagesource.ErrUndecodable, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", imagesource.ErrUndecodable, path)
	}
	slog.Debug("image decoded", "path", filePath, "format", format)
	return img, nil
}

func (s *LocalImageSource) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", imagesource.ErrNotFound)
	}
	if filepath.IsAbs(path) || s.basePath == "" {
		return filepath.Clean(path), nil
	}
	return s.safeJoin(path)
}

// safeJoin resolves rel relative to basePath and rejects directory traversal.
func (s *LocalImageSource) safeJoin(rel string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, rel))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
