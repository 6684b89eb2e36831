// Package upload stores member photos and responsibility icons, on local
// disk or in an S3-compatible bucket.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest accepted image, in bytes.
const MaxSize = 5 << 20

const (
	DirFamilyPhotos        = "family_photos"
	DirResponsibilityIcons = "responsibility_icons"
	DirStockIcons          = "stock_icons"
)

var (
	ErrUnsupportedType = errors.New("invalid file type, allowed: .jpg .jpeg .png .gif .webp")
	ErrTooLarge        = errors.New("file too large, max 5MB")
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Backend persists one object under key and returns the URL clients load
// it from.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type Uploader struct {
	backend Backend
	logger  *slog.Logger
}

func NewUploader(b Backend, logger *slog.Logger) *Uploader {
	return &Uploader{backend: b, logger: logger}
}

// Save validates an image named filename and stores it in dir under a fresh
// uuid name, keeping the original extension.
func (u *Uploader) Save(ctx context.Context, dir, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n > MaxSize {
		return "", ErrTooLarge
	}

	key := path.Join(dir, uuid.NewString()+ext)
	url, err := u.backend.Put(ctx, key, &buf, n, contentType)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	u.logger.Info("stored upload", "key", key, "bytes", n)
	return url, nil
}

type StockIcon struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

// StockIcons is the built-in icon set offered when creating a responsibility.
func StockIcons() []StockIcon {
	icons := []struct{ id, label string }{
		{"brush-teeth", "Brush Teeth"},
		{"get-dressed", "Get Dressed"},
		{"take-bath", "Take a Bath"},
		{"make-bed", "Make Bed"},
		{"homework", "Homework"},
	}
	out := make([]StockIcon, 0, len(icons))
	for _, ic := range icons {
		out = append(out, StockIcon{
			ID:    ic.id,
			URL:   "/uploads/" + DirStockIcons + "/" + ic.id + ".png",
			Label: ic.label,
		})
	}
	return out
}
