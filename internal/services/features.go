package services

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"learning-diary/internal/features"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

type recordStore interface {
	Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error)
	MergeWrite(ctx context.Context, key models.DocKey, fields models.Fields) (*models.DailyRecord, error)
}

type generator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string, format *ResponseFormat) (*genai.GenerateContentResponse, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// FeatureService runs one AI feature end to end: precondition, prompt,
// generation, parse, and persistence of the parsed fields.
type FeatureService struct {
	store recordStore
	gen   generator
}

func NewFeatureService(store recordStore, gen generator) *FeatureService {
	return &FeatureService{store: store, gen: gen}
}

// Run returns *features.PreconditionError before any generation call when the
// inputs are missing, ErrNotConfigured without an API key, and *APIError or a
// wrapped transport error when generation fails. In all of those cases
// nothing is written.
func (s *FeatureService) Run(ctx context.Context, key models.DocKey, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error) {
	f, found := features.Lookup(id)
	if !found {
		return nil, &NotFoundError{Message: fmt.Sprintf("Unknown feature %q", id)}
	}

	rec := inputs
	if rec == nil {
		stored, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		rec = stored
	}

	if err := f.Check(rec); err != nil {
		return nil, err
	}
	if !s.gen.Enabled() {
		return nil, ErrNotConfigured
	}

	var format *ResponseFormat
	if f.Schema != nil {
		format = JSONFormat(f.Schema)
	}

	resp, err := s.gen.Generate(ctx, f.Prompt(rec), format)
	if err != nil {
		return nil, err
	}

	res := f.Parse(features.PrimaryText(resp))
	if res.Status == features.StatusInvalid {
		logger.L.Warnw("feature reply could not be parsed", "feature", id, "detail", res.Detail)
	}

	if f.Kind == features.KindSticker && res.Status == features.StatusOK {
		fields, err := s.renderSticker(ctx, f, res.Fields)
		if err != nil {
			return nil, err
		}
		res.Fields = fields
	}

	result := &models.FeatureResult{
		Feature: string(f.ID),
		Status:  string(res.Status),
		Message: res.Reason,
		Fields:  res.Fields,
	}
	if !res.Persist {
		return result, nil
	}

	saved, err := s.store.MergeWrite(ctx, key, res.Fields)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	result.Persisted = true
	result.Record = saved
	return result, nil
}

func (s *FeatureService) renderSticker(ctx context.Context, f *features.Feature, fields models.Fields) (models.Fields, error) {
	message, _ := fields[f.StorageField].(string)
	prompt := features.StickerImagePrompt(message)

	image, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return models.Fields{f.StorageField: models.PraiseSticker{
		Message:      message,
		PromptUsed:   prompt,
		ImageDataURL: "data:image/png;base64," + image,
	}}, nil
}
