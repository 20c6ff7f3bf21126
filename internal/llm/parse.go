package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/flyersgrade/flyersgrade/internal/i18n"
)

// Grade is the parsed (score, feedback) pair from a provider response.
type Grade struct {
	Score    int
	Feedback string
}

// ParseGrade turns raw provider text into a Grade. It is total: garbage,
// empty input, missing keys, and bad coercions all collapse to a valid
// zero-score fallback instead of an error. Malformed provider output is an
// expected condition here, not an exceptional one.
func ParseGrade(raw string) Grade {
	fallback := Grade{Score: 0, Feedback: i18n.T("feedback.parse_fallback")}

	obj := extractJSON(raw)
	if obj == "" {
		return fallback
	}

	var payload struct {
		Score    any     `json:"score"`
		Feedback *string `json:"feedback"`
	}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return fallback
	}

	score, ok := coerceScore(payload.Score)
	if !ok {
		return fallback
	}

	feedback := i18n.T("feedback.good_effort")
	if payload.Feedback != nil && strings.TrimSpace(*payload.Feedback) != "" {
		feedback = *payload.Feedback
	}

	return Grade{Score: clampScore(score), Feedback: feedback}
}

// coerceScore accepts the shapes models actually emit: absent, a JSON
// number, or a number quoted as a string.
func coerceScore(v any) (int, bool) {
	switch s := v.(type) {
	case nil:
		return 0, true
	case json.Number:
		if n, err := s.Int64(); err == nil {
			return int(n), true
		}
		if f, err := s.Float64(); err == nil {
			return int(math.Round(f)), true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(s)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(math.Round(f)), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// extractJSON finds the outermost JSON object in a string, skipping braces
// inside quoted strings. Models wrap their JSON in prose or markdown fences
// often enough that decoding the raw text directly is not enough.
func extractJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
