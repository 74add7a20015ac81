// Package imagesource resolves the external files that image items point at.
// Board rows only store the path; the bitmap is decoded on demand.
package imagesource

import (
	"context"
	"errors"
	"image"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrUndecodable = errors.New("image could not be decoded")
)

type Source interface {
	// Open decodes the image at path. It returns an error wrapping
	// ErrNotFound or ErrUndecodable when the file is missing or is not an
	// image in a supported format.
	Open(ctx context.Context, path string) (image.Image, error)
}
