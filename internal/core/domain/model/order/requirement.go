package order

import (
	"errors"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Requirement is a question the seller asks before work starts.
type Requirement struct {
	id       kernel.UUID
	question string
	required bool
	hasFile  bool
	answered bool
	answer   string
	files    []string
}

func NewRequirement(id kernel.UUID, question string, required, hasFile bool) (*Requirement, error) {
	r := &Requirement{required: required, hasFile: hasFile}

	question = strings.TrimSpace(question)
	var questionErr error
	if question == "" {
		questionErr = errs.NewValueIsRequiredError("question")
	}
	if err := errors.Join(id.Validate(), questionErr); err != nil {
		return nil, err
	}
	r.id = id
	r.question = question

	return r, nil
}

// RestoreRequirement rebuilds a persisted requirement including its answer.
func RestoreRequirement(s RequirementSnapshot) (*Requirement, error) {
	r, err := NewRequirement(s.ID, s.Question, s.Required, s.HasFile)
	if err != nil {
		return nil, err
	}
	r.answered = s.Answered
	r.answer = s.Answer
	r.files = append([]string(nil), s.Files...)
	return r, nil
}

func (r *Requirement) ID() kernel.UUID  { return r.id }
func (r *Requirement) Question() string { return r.question }
func (r *Requirement) Required() bool   { return r.required }
func (r *Requirement) HasFile() bool    { return r.hasFile }
func (r *Requirement) Answered() bool   { return r.answered }
func (r *Requirement) Answer() string   { return r.answer }
func (r *Requirement) Files() []string  { return append([]string(nil), r.files...) }

// RequirementAnswer is the buyer's reply to one requirement.
type RequirementAnswer struct {
	RequirementID kernel.UUID
	Answer        string
	Files         []string
}

// check validates an answer without applying it.
func (r *Requirement) check(a *RequirementAnswer) error {
	if a == nil || (strings.TrimSpace(a.Answer) == "" && len(a.Files) == 0) {
		if r.required {
			return errs.Workflowf(errs.CodeInvalidPayload, "requirement %q must be answered", r.question)
		}
		return nil
	}
	if r.hasFile && r.required && len(a.Files) == 0 {
		return errs.Workflowf(errs.CodeInvalidPayload, "requirement %q needs a file", r.question)
	}
	return nil
}

func (r *Requirement) apply(a *RequirementAnswer) {
	if a == nil || (strings.TrimSpace(a.Answer) == "" && len(a.Files) == 0) {
		return
	}
	r.answered = true
	r.answer = strings.TrimSpace(a.Answer)
	r.files = append([]string(nil), a.Files...)
}
