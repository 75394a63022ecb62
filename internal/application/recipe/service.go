// Package recipe implements the recipe use cases. Service is the single
// authorization boundary for recipe data: every mutating operation resolves
// ownership through authorizeOwner.
package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names reported to the OperationRecorder
const (
	OpCreate      = "create"
	OpGet         = "get"
	OpListAll     = "list_all"
	OpListByOwner = "list_by_owner"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpSearch      = "search"
	OpUploadImage = "upload_image"
	OpOwnerStats  = "owner_stats"
)

// DefaultMaxImageSize is used when no limit is configured
const DefaultMaxImageSize = 5 << 20

// AllowedImageTypes is the whitelist of sniffed image content types.
// SVG is not accepted since it can carry script.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ErrImageStorageUnavailable is returned by UploadImage when no store is configured
var ErrImageStorageUnavailable = shared.NewDomainError("IMAGE_STORAGE_UNAVAILABLE", "Image storage is not configured")

// ImageStore persists uploaded recipe images and hands back an opaque reference
// that is stored in the recipe's image field.
type ImageStore interface {
	// Put stores data and returns its reference
	Put(ctx context.Context, ownerID uuid.UUID, contentType string, data []byte) (string, error)
	// Remove deletes the image behind ref. References the store did not
	// issue are ignored.
	Remove(ctx context.Context, ref string) error
}

// TextSanitizer normalizes user-supplied text before it is stored
type TextSanitizer interface {
	Text(s string) string
}

// OperationRecorder receives the outcome of every service operation
type OperationRecorder interface {
	RecordRecipeOp(op string, err error)
}

type plainText struct{}

func (plainText) Text(s string) string { return s }

type noopRecorder struct{}

func (noopRecorder) RecordRecipeOp(string, error) {}

// Option configures a Service
type Option func(*Service)

// WithImageStore sets the image store used by UploadImage
func WithImageStore(store ImageStore) Option {
	return func(s *Service) { s.images = store }
}

// WithSanitizer sets the text sanitizer applied to drafts and patches
func WithSanitizer(sanitizer TextSanitizer) Option {
	return func(s *Service) {
		if sanitizer != nil {
			s.sanitizer = sanitizer
		}
	}
}

// WithRecorder sets the operation recorder
func WithRecorder(recorder OperationRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxImageSize limits uploaded image size in bytes
func WithMaxImageSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageSize = n
		}
	}
}

// Service handles recipe operations
type Service struct {
	repo         recipe.RecipeRepository
	images       ImageStore
	sanitizer    TextSanitizer
	recorder     OperationRecorder
	logger       *zap.Logger
	maxImageSize int64
}

// NewService creates a new recipe Service
func NewService(repo recipe.RecipeRepository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		sanitizer:    plainText{},
		recorder:     noopRecorder{},
		logger:       zap.NewNop(),
		maxImageSize: DefaultMaxImageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new recipe owned by the caller
func (s *Service) Create(ctx context.Context, caller identity.Identity, req CreateRecipeRequest) (resp *RecipeResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpCreate)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpCreate, err)
	}()

	if caller.IsZero() {
		return nil, shared.ErrUnauthenticated
	}

	form, err := s.sanitizeRequest(req).ToForm()
	if err != nil {
		return nil, err
	}
	draft, err := form.ToDraft()
	if err != nil {
		return nil, err
	}

	r, err := recipe.New(caller.ID, draft)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRecipeID, r.ID,
		telemetry.SpanAttrCategory, r.Category,
	)

	s.logger.Info("recipe created",
		zap.String("recipe_id", r.ID.String()),
		zap.String("user_id", caller.ID.String()),
		zap.String("category", r.Category),
	)
	out := ToRecipeResponse(r)
	return &out, nil
}

// GetByID returns any recipe; reads are not restricted by owner
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (resp *RecipeResponse, err error) {
	defer func() { s.recorder.RecordRecipeOp(OpGet, err) }()

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := ToRecipeResponse(r)
	return &out, nil
}

// ListAll returns every recipe, newest first
func (s *Service) ListAll(ctx context.Context) (resp []RecipeResponse, err error) {
	defer func() { s.recorder.RecordRecipeOp(OpListAll, err) }()

	rs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToRecipeResponses(rs), nil
}

// ListByOwner returns the caller's recipes, newest first
func (s *Service) ListByOwner(ctx context.Context, caller identity.Identity) (resp []RecipeResponse, err error) {
	defer func() { s.recorder.RecordRecipeOp(OpListByOwner, err) }()

	if caller.IsZero() {
		return nil, shared.ErrUnauthenticated
	}
	rs, err := s.repo.FindByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return ToRecipeResponses(rs), nil
}

// Update merges the request into a recipe the caller owns
func (s *Service) Update(ctx context.Context, caller identity.Identity, id uuid.UUID, req UpdateRecipeRequest) (resp *RecipeResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpUpdate,
		telemetry.WithAttribute(telemetry.SpanAttrRecipeID, id),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpUpdate, err)
	}()

	r, err := s.authorizeOwner(ctx, caller, id, OpUpdate)
	if err != nil {
		return nil, err
	}

	patch, err := s.sanitizeUpdate(req).ToPatch()
	if err != nil {
		return nil, err
	}
	previousImage := r.Image
	if err := r.Apply(patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}

	if r.Image != previousImage {
		s.removeImage(ctx, previousImage)
	}

	s.logger.Info("recipe updated",
		zap.String("recipe_id", r.ID.String()),
		zap.String("user_id", caller.ID.String()),
	)
	out := ToRecipeResponse(r)
	return &out, nil
}

// Delete removes a recipe the caller owns. Deleting an id that no longer
// exists fails with NOT_FOUND.
func (s *Service) Delete(ctx context.Context, caller identity.Identity, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpDelete,
		telemetry.WithAttribute(telemetry.SpanAttrRecipeID, id),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpDelete, err)
	}()

	r, err := s.authorizeOwner(ctx, caller, id, OpDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, r.ID); err != nil {
		return err
	}
	s.removeImage(ctx, r.Image)

	s.logger.Info("recipe deleted",
		zap.String("recipe_id", r.ID.String()),
		zap.String("user_id", caller.ID.String()),
	)
	return nil
}

// Search matches query against title or description and optionally filters
// by exact category. Results are newest first.
func (s *Service) Search(ctx context.Context, req SearchRequest) (resp []RecipeResponse, err error) {
	filter := recipe.SearchFilter{
		Query:    strings.TrimSpace(req.Query),
		Category: strings.TrimSpace(req.Category),
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpSearch,
		telemetry.WithAttribute(telemetry.SpanAttrQuery, filter.Query),
		telemetry.WithAttribute(telemetry.SpanAttrCategory, filter.Category),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpSearch, err)
	}()

	rs, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrResults, len(rs))
	return ToRecipeResponses(rs), nil
}

// OwnerStats counts the caller's recipes per category and reports when the
// newest one was created
func (s *Service) OwnerStats(ctx context.Context, caller identity.Identity) (resp *OwnerStatsResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpOwnerStats)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpOwnerStats, err)
	}()

	if caller.IsZero() {
		return nil, shared.ErrUnauthenticated
	}
	counts, err := s.repo.CountByCategory(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.LatestCreatedAt(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	stats := &OwnerStatsResponse{ByCategory: make(map[string]int64, len(recipe.Categories))}
	for _, c := range recipe.Categories {
		stats.ByCategory[c] = 0
	}
	for c, n := range counts {
		stats.ByCategory[c] = n
		stats.Total += n
	}
	if !latest.IsZero() {
		stats.LatestCreatedAt = &latest
	}
	return stats, nil
}

// FormDefaults returns an empty form with the selectable catalogues
func (s *Service) FormDefaults() FormResponse {
	return newFormResponse(recipe.NewForm())
}

// EditForm pre-fills a form for a recipe the caller owns
func (s *Service) EditForm(ctx context.Context, caller identity.Identity, id uuid.UUID) (*FormResponse, error) {
	r, err := s.authorizeOwner(ctx, caller, id, "edit_form")
	if err != nil {
		return nil, err
	}
	out := newFormResponse(recipe.FormFromRecipe(r))
	return &out, nil
}

// UploadImage validates and stores an image, returning the reference to put
// in a recipe's image field.
func (s *Service) UploadImage(ctx context.Context, caller identity.Identity, data []byte) (resp *ImageUploadResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", OpUploadImage)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordRecipeOp(OpUploadImage, err)
	}()

	if caller.IsZero() {
		return nil, shared.ErrUnauthenticated
	}
	if s.images == nil {
		return nil, ErrImageStorageUnavailable
	}
	if len(data) == 0 {
		return nil, shared.NewValidationError("Image is empty").WithDetail("image", "Image is required")
	}
	if int64(len(data)) > s.maxImageSize {
		return nil, shared.NewValidationError("Image is too large").WithDetail("image", "Image exceeds the size limit")
	}

	contentType := http.DetectContentType(data)
	if _, ok := AllowedImageTypes[contentType]; !ok {
		return nil, shared.NewValidationError("Unsupported image type").
			WithDetail("image", "Only JPEG, PNG, GIF and WebP images are accepted")
	}

	ref, err := s.images.Put(ctx, caller.ID, contentType, data)
	if err != nil {
		s.logger.Error("failed to store recipe image",
			zap.String("user_id", caller.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return &ImageUploadResponse{Image: ref, ContentType: contentType, Size: len(data)}, nil
}

// authorizeOwner is the ownership guard for every mutating entry point.
// It re-reads the stored row and compares its owner with the caller; the
// client never supplies the owner.
func (s *Service) authorizeOwner(ctx context.Context, caller identity.Identity, id uuid.UUID, op string) (*recipe.Recipe, error) {
	if caller.IsZero() {
		return nil, shared.ErrUnauthenticated
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.IsOwnedBy(caller.ID) {
		telemetry.AddEvent(trace.SpanFromContext(ctx), "ownership_denied",
			telemetry.SpanAttrUserID, caller.ID,
			telemetry.SpanAttrOwnerID, r.OwnerID,
		)
		s.logger.Warn("recipe ownership check failed",
			zap.String("op", op),
			zap.String("recipe_id", id.String()),
			zap.String("user_id", caller.ID.String()),
		)
		return nil, shared.ErrForbidden
	}
	return r, nil
}

func (s *Service) removeImage(ctx context.Context, ref string) {
	if s.images == nil || ref == "" || ref == recipe.DefaultImage {
		return
	}
	if err := s.images.Remove(ctx, ref); err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("failed to remove recipe image", zap.String("image", ref), zap.Error(err))
	}
}

func (s *Service) sanitizeRequest(req CreateRecipeRequest) CreateRecipeRequest {
	req.Title = s.sanitizer.Text(req.Title)
	req.Description = s.sanitizer.Text(req.Description)
	req.Ingredients = s.sanitizeIngredients(req.Ingredients)
	req.Instructions = s.sanitizeSteps(req.Instructions)
	return req
}

func (s *Service) sanitizeUpdate(req UpdateRecipeRequest) UpdateRecipeRequest {
	if req.Title != nil {
		v := s.sanitizer.Text(*req.Title)
		req.Title = &v
	}
	if req.Description != nil {
		v := s.sanitizer.Text(*req.Description)
		req.Description = &v
	}
	if req.Ingredients != nil {
		v := s.sanitizeIngredients(*req.Ingredients)
		req.Ingredients = &v
	}
	if req.Instructions != nil {
		v := s.sanitizeSteps(*req.Instructions)
		req.Instructions = &v
	}
	return req
}

func (s *Service) sanitizeIngredients(in []recipe.Ingredient) []recipe.Ingredient {
	out := make([]recipe.Ingredient, len(in))
	for i, ing := range in {
		out[i] = recipe.Ingredient{
			Name:   s.sanitizer.Text(ing.Name),
			Amount: s.sanitizer.Text(ing.Amount),
			Unit:   s.sanitizer.Text(ing.Unit),
		}
	}
	return out
}

func (s *Service) sanitizeSteps(in []string) []string {
	out := make([]string, len(in))
	for i, step := range in {
		out[i] = s.sanitizer.Text(step)
	}
	return out
}
