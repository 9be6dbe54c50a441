package pipeline

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request is the caller's input contract for one pipeline run.
type Request struct {
	// Topic is the research subject, 3-200 characters.
	Topic string `validate:"required,min=3,max=200"`
	// Iterations is the analysis depth, 1-5 rounds.
	Iterations int `validate:"required,min=1,max=5"`
	// SelectedFocusAreas optionally restricts the generated focus areas to
	// a subset of labels. Empty means use all.
	SelectedFocusAreas []string
}

var validate = validator.New()

// Validate rejects out-of-range input with a *ValidationError.
func (r *Request) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			switch first.Field() {
			case "Topic":
				return &ValidationError{Field: "topic", Reason: "must be 3-200 characters"}
			case "Iterations":
				return &ValidationError{Field: "iterations", Reason: "must be between 1 and 5"}
			}
		}
		return &ValidationError{Field: "request", Reason: err.Error()}
	}
	return nil
}
