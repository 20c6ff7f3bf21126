// Package prompts builds the provider-neutral grading prompt.
//
// The rubric, system directive, and task text are process-wide fixed
// configuration embedded at build time and loaded exactly once; the user
// message is rendered from a template so the wording lives next to the
// other prompt text instead of inside Go string literals.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/flyersgrade/flyersgrade/internal/model"
)

//go:embed templates/*.txt templates/*.tmpl
var templateFS embed.FS

var (
	loadOnce sync.Once
	loadErr  error

	systemText string
	rubricText string
	taskText   string
	userTmpl   *template.Template
)

func load() error {
	loadOnce.Do(func() {
		read := func(name string) string {
			if loadErr != nil {
				return ""
			}
			data, err := templateFS.ReadFile("templates/" + name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return ""
			}
			return strings.TrimRight(string(data), "\n")
		}

		systemText = read("system.txt")
		rubricText = read("rubric.txt")
		taskText = read("task.txt")
		if loadErr != nil {
			return
		}

		tmplData, err := templateFS.ReadFile("templates/user.tmpl")
		if err != nil {
			loadErr = fmt.Errorf("read prompt file user.tmpl: %w", err)
			return
		}
		userTmpl, loadErr = template.New("user").Parse(string(tmplData))
	})
	return loadErr
}

// Payload is the provider-neutral prompt for one short_answers submission.
type Payload struct {
	System string
	Rubric string
	Task   string
	QAJSON string
	// QA keeps the structured pairs for the submission record.
	QA []model.QA
}

// Build zips each item with the caller-supplied response (empty string when
// absent) and packages the fixed prompt text around the result. Pure; the
// only failure mode is a broken embedded template.
func Build(items []model.Item, responses map[string]string) (Payload, error) {
	if err := load(); err != nil {
		return Payload{}, err
	}

	qa := make([]model.QA, len(items))
	for i, it := range items {
		qa[i] = model.QA{
			Prompt:   it.Prompt,
			Guidance: it.AnswerGuidance,
			Student:  responses[fmt.Sprintf("%d", i)],
		}
	}

	qaJSON, err := json.Marshal(qa)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal qa: %w", err)
	}

	return Payload{
		System: systemText,
		Rubric: rubricText,
		Task:   taskText,
		QAJSON: string(qaJSON),
		QA:     qa,
	}, nil
}

// UserMessage renders the user-role message: rubric, task, serialized Q&A,
// and the output-format instruction.
func (p Payload) UserMessage() (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := userTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render user prompt: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FullPrompt concatenates the system directive and the user message into a
// single string for providers that take one prompt instead of a chat.
func (p Payload) FullPrompt() (string, error) {
	msg, err := p.UserMessage()
	if err != nil {
		return "", err
	}
	return p.System + "\n\n" + msg, nil
}
