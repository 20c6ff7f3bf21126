package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flyersgrade/flyersgrade/internal/catalog"
	"github.com/flyersgrade/flyersgrade/internal/i18n"
	"github.com/flyersgrade/flyersgrade/internal/ledger"
	"github.com/flyersgrade/flyersgrade/internal/llm"
	"github.com/flyersgrade/flyersgrade/internal/llm/prompts"
	"github.com/flyersgrade/flyersgrade/internal/model"
)

// ErrUnsupportedType means the catalog carries an exercise type the engine
// does not grade; that is a catalog data bug, not a student mistake.
var ErrUnsupportedType = errors.New("unsupported exercise type")

// DefaultMaxItems bounds how many items of an exercise are graded.
const DefaultMaxItems = 12

// Engine composes the catalog, the scorers, the AI provider, and the
// ledger into the per-submission grading flow. It holds no per-call state.
type Engine struct {
	catalog  *catalog.Catalog
	provider llm.Provider
	ledger   ledger.Ledger
	maxItems int
}

// NewEngine wires an engine. maxItems <= 0 selects DefaultMaxItems.
func NewEngine(cat *catalog.Catalog, provider llm.Provider, led ledger.Ledger, maxItems int) *Engine {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if provider == nil {
		provider = llm.Unconfigured{}
	}
	return &Engine{catalog: cat, provider: provider, ledger: led, maxItems: maxItems}
}

// Grade runs one submission through resolution, scoring, and recording.
//
// A failed ledger append does not discard the grade: the result is returned
// together with a wrapped *ledger.WriteError so the caller can show the
// score and still report that persistence failed.
func (e *Engine) Grade(ctx context.Context, exerciseID, studentName string, responses map[string]string) (*model.GradingResult, error) {
	ex, err := e.catalog.Find(exerciseID)
	if err != nil {
		return nil, err
	}

	items := ex.Items
	if len(items) > e.maxItems {
		items = items[:e.maxItems]
	}

	var res model.GradingResult
	switch ex.Type {
	case model.TypeMultipleFill:
		score, feedback, details := ScoreExact(items, responses)
		detailsJSON, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		res = model.GradingResult{Score: score, Feedback: feedback, Details: string(detailsJSON)}

	case model.TypeShortAnswers:
		payload, err := prompts.Build(items, responses)
		if err != nil {
			return nil, fmt.Errorf("build prompt: %w", err)
		}
		if !llm.Configured(e.provider) {
			// Short-circuit before the client: an unconfigured provider
			// is a known state, not a call failure. The attempt is still
			// recorded.
			res = model.GradingResult{
				Score:    0,
				Feedback: i18n.T("feedback.no_credentials"),
				Details:  payload.QAJSON,
			}
			break
		}
		raw, err := e.provider.Complete(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("grade short answers: %w", err)
		}
		grade := llm.ParseGrade(raw)
		res = model.GradingResult{Score: grade.Score, Feedback: grade.Feedback, Details: payload.QAJSON}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ex.Type)
	}

	rec := model.SubmissionRecord{
		Timestamp:     time.Now().UTC(),
		StudentName:   studentName,
		ExerciseID:    ex.ID,
		ExerciseTitle: ex.Title,
		Answers:       res.Details,
		Score:         res.Score,
		Feedback:      res.Feedback,
	}
	if err := e.ledger.Append(rec); err != nil {
		slog.Error("ledger append failed", "exercise", ex.ID, "student", studentName, "error", err)
		return &res, fmt.Errorf("record submission: %w", err)
	}

	slog.Info("graded submission",
		"exercise", ex.ID,
		"type", ex.Type,
		"student", studentName,
		"score", res.Score,
		"provider", e.provider.Name(),
	)
	return &res, nil
}
