package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	infraconfig "github.com/resepku/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ recipeapp.ImageStore = InlineImageStore{}

// InlineImageStore keeps the image inside the reference itself as a base64
// data URL. Used when no bucket is configured.
type InlineImageStore struct{}

// Put encodes data as a data URL
func (InlineImageStore) Put(_ context.Context, _ uuid.UUID, contentType string, data []byte) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	return EncodeDataURL(contentType, data), nil
}

// Remove is a no-op; there is nothing stored outside the recipe row
func (InlineImageStore) Remove(context.Context, string) error {
	return nil
}

// EncodeDataURL renders data as data:<type>;base64,<payload>
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL and returns the declared content
// type and the decoded bytes.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URL has no payload")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data URL must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return contentType, data, nil
}

// NewImageStore returns the S3 store when storage is enabled and the inline
// store otherwise. The bucket is created on demand.
func NewImageStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (recipeapp.ImageStore, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Object storage disabled, recipe images are stored inline")
		return InlineImageStore{}, nil
	}

	store, err := NewS3ImageStore(cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("Object storage enabled", zap.String("bucket", store.Bucket()))
	return store, nil
}
