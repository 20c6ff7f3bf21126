// Package catalog loads and indexes the exercise definitions.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/flyersgrade/flyersgrade/internal/model"
)

// ErrNotFound is returned by Find for an unknown exercise id.
var ErrNotFound = errors.New("exercise not found")

// Catalog is the read-only set of exercises, loaded once at startup.
type Catalog struct {
	exercises []model.Exercise
	byID      map[string]int
}

// Load reads a JSON file containing a top-level array of exercises and
// validates every entry. Any problem here is fatal: the server must not
// start with a broken catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exercises file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON bytes.
func Parse(data []byte) (*Catalog, error) {
	var exercises []model.Exercise
	if err := json.Unmarshal(data, &exercises); err != nil {
		return nil, fmt.Errorf("parse exercises: %w", err)
	}

	c := &Catalog{
		exercises: exercises,
		byID:      make(map[string]int, len(exercises)),
	}
	for i, ex := range exercises {
		if err := validate(ex); err != nil {
			return nil, fmt.Errorf("exercise %d (%q): %w", i, ex.ID, err)
		}
		if _, dup := c.byID[ex.ID]; dup {
			return nil, fmt.Errorf("exercise %d: duplicate id %q", i, ex.ID)
		}
		c.byID[ex.ID] = i
	}
	return c, nil
}

func validate(ex model.Exercise) error {
	if ex.ID == "" {
		return errors.New("missing id")
	}
	if ex.Title == "" {
		return errors.New("missing title")
	}
	if len(ex.Items) == 0 {
		return errors.New("no items")
	}
	switch ex.Type {
	case model.TypeMultipleFill:
		for i, it := range ex.Items {
			if it.Prompt == "" {
				return fmt.Errorf("item %d: missing prompt", i)
			}
			if it.Answer == "" {
				return fmt.Errorf("item %d: missing gold answer", i)
			}
		}
	case model.TypeShortAnswers:
		for i, it := range ex.Items {
			if it.Prompt == "" {
				return fmt.Errorf("item %d: missing prompt", i)
			}
		}
	case "":
		return errors.New("missing type")
	default:
		// Unknown types load fine; the engine rejects them at grading
		// time so a catalog data bug is reported per attempt, not at boot.
	}
	return nil
}

// Find returns the exercise with the given id.
func (c *Catalog) Find(id string) (model.Exercise, error) {
	i, ok := c.byID[id]
	if !ok {
		return model.Exercise{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.exercises[i], nil
}

// List returns all exercises in file order.
func (c *Catalog) List() []model.Exercise {
	out := make([]model.Exercise, len(c.exercises))
	copy(out, c.exercises)
	return out
}

// Sanitized returns the exercises with gold answers and guidance stripped,
// safe to hand to the form-rendering collaborator.
func (c *Catalog) Sanitized() []model.Exercise {
	out := make([]model.Exercise, len(c.exercises))
	for i, ex := range c.exercises {
		items := make([]model.Item, len(ex.Items))
		for j, it := range ex.Items {
			items[j] = model.Item{Prompt: it.Prompt, Options: it.Options}
		}
		ex.Items = items
		out[i] = ex
	}
	return out
}

// Len reports how many exercises are loaded.
func (c *Catalog) Len() int {
	return len(c.exercises)
}
