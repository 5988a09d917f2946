package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

type dailyLogRepository interface {
	Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error)
	Merge(ctx context.Context, key models.DocKey, fields models.Fields) (*models.DailyRecord, error)
}

// ChangeFeed fans merged documents out to live subscribers.
type ChangeFeed interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the subscription is active, so nothing published
	// after it returns can be missed.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

type DailyLogService struct {
	repo  dailyLogRepository
	feed  ChangeFeed
	appID string
}

func NewDailyLogService(repo dailyLogRepository, feed ChangeFeed, appID string) *DailyLogService {
	return &DailyLogService{repo: repo, feed: feed, appID: appID}
}

// Key builds the document key for a user and an already validated date.
func (s *DailyLogService) Key(userID, date string) models.DocKey {
	return models.DocKey{AppID: s.appID, UserID: userID, Date: date}
}

// Get returns nil, nil when the document does not exist yet.
func (s *DailyLogService) Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error) {
	rec, err := s.repo.Get(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily log: %w", err)
	}
	return rec, nil
}

// MergeWrite merges fields into the document, creating it when absent, and
// publishes the merged document to subscribers.
func (s *DailyLogService) MergeWrite(ctx context.Context, key models.DocKey, fields models.Fields) (*models.DailyRecord, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	rec, err := s.repo.Merge(ctx, key, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge daily log: %w", err)
	}

	// The write is already committed; publish failures are only logged.
	data, err := json.Marshal(rec)
	if err == nil {
		err = s.feed.Publish(ctx, key.Path(), data)
	}
	if err != nil {
		logger.L.Warnw("failed to publish daily log change", "path", key.Path(), "error", err)
	}

	return rec, nil
}

// Subscribe delivers the current document first (nil when absent) and then
// every later merged document. The returned func stops the subscription and
// closes the channel.
func (s *DailyLogService) Subscribe(ctx context.Context, key models.DocKey) (<-chan *models.DailyRecord, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	changes, stop, err := s.feed.Subscribe(ctx, key.Path())
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", key.Path(), err)
	}

	current, err := s.Get(ctx, key)
	if err != nil {
		stop()
		cancel()
		return nil, nil, err
	}

	out := make(chan *models.DailyRecord, 1)
	out <- current

	go func() {
		defer close(out)
		defer stop()

		last := current
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-changes:
				if !ok {
					return
				}
				rec := &models.DailyRecord{}
				if err := json.Unmarshal(payload, rec); err != nil {
					logger.L.Warnw("dropping malformed change", "path", key.Path(), "error", err)
					continue
				}
				if isOlder(rec, last) {
					continue
				}
				last = rec
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// isOlder reports whether rec predates the last delivered document. A change
// published before the initial read can arrive after it. Ordering uses the
// store revision, which follows commit order.
func isOlder(rec, last *models.DailyRecord) bool {
	if last == nil || rec.Revision == 0 || last.Revision == 0 {
		return false
	}
	return rec.Revision < last.Revision
}

func validateFields(fields models.Fields) error {
	if len(fields) == 0 {
		return &ValidationError{Fields: map[string]string{"fields": "At least one field is required"}}
	}

	fieldErrors := make(map[string]string)
	for name, value := range fields {
		if !models.IsWritableField(name) {
			fieldErrors[name] = "Unknown or read-only field"
			continue
		}
		switch name {
		case models.FieldLearningChecklist:
			for _, id := range checklistIDs(value) {
				if !models.IsChecklistItem(id) {
					fieldErrors[name] = fmt.Sprintf("Unknown checklist item %q", id)
				}
			}
		case models.FieldSelectedEmotion:
			if id, ok := value.(string); ok && id != "" {
				if _, found := models.EmotionByID(id); !found {
					fieldErrors[name] = fmt.Sprintf("Unknown emotion %q", id)
				}
			}
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func checklistIDs(value interface{}) []string {
	var ids []string
	switch checklist := value.(type) {
	case map[string]interface{}:
		for id := range checklist {
			ids = append(ids, id)
		}
	case map[string]bool:
		for id := range checklist {
			ids = append(ids, id)
		}
	}
	return ids
}
