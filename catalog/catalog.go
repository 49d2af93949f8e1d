// Package catalog loads the immutable list of claimable sustainable actions.
// The catalog is read once at boot and never mutates; per-user completion
// state lives in the database, not here.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verification modes for a task.
const (
	VerifyNone  = "none"
	VerifyPhoto = "photo"
	VerifyGrid  = "grid"
)

// Task is a single catalog entry.
type Task struct {
	ID                 int     `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	Points             int     `json:"points"`
	CarbonSavingKg     float64 `json:"carbonSavingKg"`
	Verification       string  `json:"verification"`
	VerificationTarget string  `json:"verificationTarget,omitempty"`
	Unlimited          bool    `json:"unlimited,omitempty"`
	DisplayUnit        string  `json:"displayUnit,omitempty"`
}

// Catalog is the loaded, validated task list.
type Catalog struct {
	tasks []Task
	byID  map[int]*Task
}

// Load reads and validates the task catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task catalog: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse task catalog: %w", err)
	}

	c := &Catalog{byID: make(map[int]*Task, len(tasks))}
	for i := range tasks {
		t := &tasks[i]
		// Entries without an explicit id are numbered by position, matching
		// the ordering clients display.
		if t.ID == 0 {
			t.ID = i + 1
		}
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("task %d (%q): %w", t.ID, t.Title, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("task %d (%q): duplicate id", t.ID, t.Title)
		}
		if t.DisplayUnit == "" {
			t.DisplayUnit = "kg"
		}
		c.byID[t.ID] = t
	}
	c.tasks = tasks
	return c, nil
}

func validate(t *Task) error {
	if t.Title == "" {
		return fmt.Errorf("missing title")
	}
	if t.Points < 0 {
		return fmt.Errorf("negative points")
	}
	if t.CarbonSavingKg < 0 {
		return fmt.Errorf("negative carbon saving")
	}
	switch t.Verification {
	case VerifyNone, VerifyGrid:
	case VerifyPhoto:
		if t.VerificationTarget == "" {
			return fmt.Errorf("photo verification requires a target")
		}
	case "":
		t.Verification = VerifyNone
	default:
		return fmt.Errorf("unknown verification mode %q", t.Verification)
	}
	if t.DisplayUnit != "" && t.DisplayUnit != "kg" && t.DisplayUnit != "g" {
		return fmt.Errorf("unknown display unit %q", t.DisplayUnit)
	}
	return nil
}

// Get returns the task with the given id, or nil.
func (c *Catalog) Get(id int) *Task {
	return c.byID[id]
}

// All returns the tasks in file order. Callers must not mutate the result.
func (c *Catalog) All() []Task {
	return c.tasks
}

// Len reports the number of tasks.
func (c *Catalog) Len() int {
	return len(c.tasks)
}
