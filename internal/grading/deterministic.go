// Package grading scores submissions and orchestrates the grading flow.
package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flyersgrade/flyersgrade/internal/i18n"
	"github.com/flyersgrade/flyersgrade/internal/model"
)

// Feedback never names more than the first few mistakes; a wall of
// corrections is no use to a young learner.
const maxListedMistakes = 3

// ScoreExact grades closed-form items against their gold answers. Gold and
// response are both trimmed and lower-cased before comparing; a response is
// correct only on exact normalized equality. Pure and total: missing
// responses score as incorrect, zero items score as 0.
func ScoreExact(items []model.Item, responses map[string]string) (int, string, []model.ItemJudgment) {
	total := len(items)
	correct := 0
	details := make([]model.ItemJudgment, 0, total)

	for i, it := range items {
		gold := normalize(it.Answer)
		pred := normalize(responses[strconv.Itoa(i)])
		ok := pred == gold
		if ok {
			correct++
		}
		details = append(details, model.ItemJudgment{
			Prompt:    it.Prompt,
			Gold:      gold,
			Predicted: pred,
			Correct:   ok,
		})
	}

	divisor := total
	if divisor < 1 {
		divisor = 1
	}
	score := int(math.Round(float64(correct) / float64(divisor) * 100))

	return score, exactFeedback(details), details
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func exactFeedback(details []model.ItemJudgment) string {
	var tips []string
	for _, d := range details {
		if d.Correct {
			continue
		}
		if len(tips) < maxListedMistakes {
			tips = append(tips, fmt.Sprintf("'%s' for: %s", d.Gold, d.Prompt))
		}
	}
	if len(tips) == 0 {
		return i18n.T("feedback.all_correct")
	}
	return i18n.Td("feedback.review", map[string]any{"Tips": strings.Join(tips, ", ")})
}
