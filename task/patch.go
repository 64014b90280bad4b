package task

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RawPatch is the wire form of a create or update payload. Absent JSON keys
// decode to nil.
type RawPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// Patch is a validated set of optional field changes.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
}

// Decode validates every supplied field of r and converts it into a Patch.
// The first invalid field is reported.
func (r RawPatch) Decode() (Patch, error) {
	var p Patch
	if r.Title != nil {
		title, err := normalizeTitle(*r.Title)
		if err != nil {
			return Patch{}, err
		}
		p.Title = &title
	}
	if r.Description != nil {
		d := *r.Description
		p.Description = &d
	}
	if r.Status != nil {
		s, err := ParseStatus(*r.Status)
		if err != nil {
			return Patch{}, err
		}
		p.Status = &s
	}
	if r.Priority != nil {
		pr, err := ParsePriority(*r.Priority)
		if err != nil {
			return Patch{}, err
		}
		p.Priority = &pr
	}
	return p, nil
}

// Validate checks the fields of an already-decoded Patch. It exists for
// callers that build a Patch directly instead of decoding a RawPatch.
func (p Patch) Validate() error {
	if p.Title != nil {
		if _, err := normalizeTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		_, err := ParseStatus(string(*p.Status))
		return err
	}
	if p.Priority != nil && !p.Priority.Valid() {
		_, err := ParsePriority(string(*p.Priority))
		return err
	}
	return nil
}

// Apply merges the supplied fields of p onto t. Fields left nil are unchanged.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title, _ = normalizeTitle(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// NewTask builds a task from a create patch, filling defaults for absent
// optional fields. A title is required.
func (p Patch) NewTask() (*Task, error) {
	if p.Title == nil {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t := &Task{
		Status:   DefaultStatus,
		Priority: DefaultPriority,
	}
	p.Apply(t)
	return t, nil
}

func normalizeTitle(raw string) (string, error) {
	title := norm.NFC.String(strings.TrimSpace(raw))
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	return title, nil
}
