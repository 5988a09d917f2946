package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"learning-diary/internal/database"
	"learning-diary/internal/models"
)

// newTestRepo connects to TEST_DATABASE_URL and migrates it. Each test gets
// its own user id so runs never share documents.
func newTestRepo(t *testing.T) (*DailyLogRepo, models.DocKey) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := database.NewPostgresPool(url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := database.RunMigrations(pool); err != nil {
		pool.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	key := models.DocKey{AppID: "ai-learning-diary-test", UserID: uuid.New().String(), Date: "2026-03-02"}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM daily_logs WHERE app_id = $1 AND user_id = $2`, key.AppID, key.UserID)
		pool.Close()
	})
	return NewDailyLogRepo(pool), key
}

func problemSet(questions ...string) []interface{} {
	out := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		out = append(out, map[string]interface{}{"question": q, "simple_answer": "a", "explanation": "e"})
	}
	return out
}

func TestDailyLogRepo_MergeSequence(t *testing.T) {
	repo, key := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Get(ctx, key); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows before the first write, got %v", err)
	}

	tests := []struct {
		name   string
		fields models.Fields
		check  func(t *testing.T, rec *models.DailyRecord)
	}{
		{
			name: "first write creates the document",
			fields: models.Fields{
				models.FieldLearningChecklist: map[string]interface{}{"homework": true},
				models.FieldAIProblems:        problemSet("1+1?"),
				models.FieldUserAnswers:       map[string]interface{}{"0": "2"},
				models.FieldRevealedAnswers:   map[string]interface{}{"0": true},
			},
			check: func(t *testing.T, rec *models.DailyRecord) {
				if !rec.Checked("homework") || len(rec.AIProblems) != 1 {
					t.Fatalf("unexpected document %+v", rec)
				}
				if rec.UserAnswers[0] != "2" || !rec.RevealedAnswers[0] {
					t.Fatalf("expected answer state, got %v %v", rec.UserAnswers, rec.RevealedAnswers)
				}
			},
		},
		{
			name: "new problem set clears answers and checklist merges",
			fields: models.Fields{
				models.FieldLearningChecklist: map[string]interface{}{"concentration": true},
				models.FieldAIProblems:        problemSet("2+2?", "3+3?"),
				models.FieldUserAnswers:       nil,
				models.FieldRevealedAnswers:   nil,
			},
			check: func(t *testing.T, rec *models.DailyRecord) {
				if !rec.Checked("homework") || !rec.Checked("concentration") {
					t.Fatalf("expected merged checklist, got %v", rec.LearningChecklist)
				}
				if len(rec.AIProblems) != 2 || rec.AIProblems[0].Question != "2+2?" {
					t.Fatalf("expected replaced problems, got %v", rec.AIProblems)
				}
				if rec.UserAnswers != nil || rec.RevealedAnswers != nil {
					t.Fatalf("expected answers deleted, got %v %v", rec.UserAnswers, rec.RevealedAnswers)
				}
			},
		},
	}

	var prev *models.DailyRecord
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := repo.Merge(ctx, key, tc.fields)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, rec)

			if rec.Revision != int64(i+1) {
				t.Fatalf("expected revision %d, got %d", i+1, rec.Revision)
			}
			if rec.LastUpdated == nil {
				t.Fatalf("expected lastUpdated to be set")
			}
			if prev != nil && !rec.LastUpdated.After(*prev.LastUpdated) {
				t.Fatalf("lastUpdated went from %v to %v", prev.LastUpdated, rec.LastUpdated)
			}
			prev = rec
		})
	}

	stored, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Revision != prev.Revision || !stored.LastUpdated.Equal(*prev.LastUpdated) {
		t.Fatalf("stored document differs from last merge: %+v vs %+v", stored, prev)
	}
}

func TestDailyLogRepo_ConcurrentMergesStayOrdered(t *testing.T) {
	repo, key := newTestRepo(t)
	ctx := context.Background()
	items := []string{"concentration", "homework", "review", "tidying", "customProblem", "mindmap"}

	var mu sync.Mutex
	var results []*models.DailyRecord
	var wg sync.WaitGroup
	for _, id := range items {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			rec, err := repo.Merge(ctx, key, models.Fields{
				models.FieldLearningChecklist: map[string]interface{}{id: true},
			})
			if err != nil {
				t.Errorf("merge %s: %v", id, err)
				return
			}
			mu.Lock()
			results = append(results, rec)
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	if len(results) != len(items) {
		t.Fatalf("expected %d merges, got %d", len(items), len(results))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Revision < results[j].Revision })
	for i, rec := range results {
		if rec.Revision != int64(i+1) {
			t.Fatalf("expected revisions 1..%d, got %d at %d", len(items), rec.Revision, i)
		}
		if i > 0 && !rec.LastUpdated.After(*results[i-1].LastUpdated) {
			t.Fatalf("revision %d stamped %v, not after %v", rec.Revision, rec.LastUpdated, results[i-1].LastUpdated)
		}
	}

	last := results[len(results)-1]
	for _, id := range items {
		if !last.Checked(id) {
			t.Fatalf("last committed document is missing %s: %v", id, last.LearningChecklist)
		}
	}
}

func TestDailyLogRepo_MergeDropsServerFields(t *testing.T) {
	repo, key := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Merge(ctx, key, models.Fields{models.FieldStudyContent: "분수"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw []byte
	err := repo.pool.QueryRow(ctx, `SELECT data FROM daily_logs
		WHERE app_id = $1 AND user_id = $2 AND log_date = $3::date`,
		key.AppID, key.UserID, key.Date,
	).Scan(&raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(raw)
	for _, field := range []string{models.FieldLastUpdated, models.FieldRevision} {
		if strings.Contains(doc, fmt.Sprintf("%q", field)) {
			t.Fatalf("document body must not carry %s: %s", field, doc)
		}
	}
}
