// Package storage writes uploaded avatar images to local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/colloquyhq/colloquy-api/internal/config"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrEmptyFile is returned when the upload has no content.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrFileTooLarge is returned when the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("uploaded file is too large")

	// ErrUnsupportedType is returned when the upload is not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// allowedTypes maps accepted MIME types to the extension used on disk.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarStore saves avatar images under a directory and returns the URL they
// are served from.
type AvatarStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

// NewAvatarStore creates the avatar directory if needed.
func NewAvatarStore(cfg config.StorageConfig, log *slog.Logger) (*AvatarStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(cfg.AvatarDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}
	return &AvatarStore{
		dir:      cfg.AvatarDir,
		baseURL:  strings.TrimRight(cfg.AvatarBaseURL, "/"),
		maxBytes: cfg.MaxAvatarBytes,
		logger:   log.With(slog.String("component", "avatar_store")),
	}, nil
}

// MaxBytes is the largest accepted upload.
func (s *AvatarStore) MaxBytes() int64 {
	return s.maxBytes
}

// Dir is the directory avatars are written to.
func (s *AvatarStore) Dir() string {
	return s.dir
}

// Save validates the content type by sniffing r, writes the image for userID
// and returns its public URL. Any previous avatar of the user with a different
// extension is removed.
func (s *AvatarStore) Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	ext, ok := allowedTypes[mime.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}

	name := userID.String() + ext
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	for _, other := range allowedTypes {
		if other != ext {
			_ = os.Remove(filepath.Join(s.dir, userID.String()+other))
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("avatar stored",
		slog.String("user_id", userID.String()),
		slog.String("content_type", mime.String()),
		slog.Int("size", len(data)))

	return s.baseURL + "/" + name, nil
}
