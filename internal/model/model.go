package model

import "time"

// ExerciseType determines which item fields are mandatory and how an
// exercise is graded.
type ExerciseType string

const (
	// TypeMultipleFill is a closed-form fill-in exercise scored locally
	// against each item's gold answer.
	TypeMultipleFill ExerciseType = "multiple_fill"
	// TypeShortAnswers is an open-ended exercise graded by an AI provider
	// under the fixed rubric.
	TypeShortAnswers ExerciseType = "short_answers"
)

// Item is a single question inside an exercise.
//
// For multiple_fill items Options and Answer are set; Answer is the gold
// value matched case-insensitively. For short_answers items only Prompt is
// required and AnswerGuidance is an optional hint passed to the grader.
type Item struct {
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options,omitempty"`
	Answer         string   `json:"answer,omitempty"`
	AnswerGuidance string   `json:"answer_guidance,omitempty"`
}

// Exercise is one practice task. Immutable after the catalog loads it.
type Exercise struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Type        ExerciseType `json:"type"`
	Instruction string       `json:"instruction"`
	Items       []Item       `json:"items"`
}

// ItemJudgment records the per-item outcome of deterministic scoring.
type ItemJudgment struct {
	Prompt    string `json:"prompt"`
	Gold      string `json:"gold"`
	Predicted string `json:"pred"`
	Correct   bool   `json:"correct"`
}

// QA pairs one item with the student's answer for the AI grader.
type QA struct {
	Prompt   string `json:"prompt"`
	Guidance string `json:"guidance"`
	Student  string `json:"student"`
}

// GradingResult is the outcome of one graded submission. Never mutated
// after creation.
type GradingResult struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	// Details holds the serialized per-item judgments: ItemJudgment rows
	// for multiple_fill, QA rows for short_answers.
	Details string `json:"details"`
}

// SubmissionRecord is one append-only ledger row.
type SubmissionRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	StudentName   string    `json:"student_name"`
	ExerciseID    string    `json:"exercise_id"`
	ExerciseTitle string    `json:"exercise_title"`
	Answers       string    `json:"answers"`
	Score         int       `json:"score"`
	Feedback      string    `json:"feedback"`
}
