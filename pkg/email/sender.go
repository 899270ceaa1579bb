package email

import (
	"context"
	"fmt"
	"regexp"
)

// emailRegex is a pragmatic sanity check, not full RFC 5322 validation.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// SendTemplateParams describes a single templated send.
// TemplateModel values are interpolated into the provider-side template.
type SendTemplateParams struct {
	TemplateID    int64
	SendTo        string
	Tag           string
	TemplateModel map[string]any
}

// Validate checks the params before any provider call is made.
func (p SendTemplateParams) Validate() error {
	if p.TemplateID <= 0 {
		return fmt.Errorf("%w: TemplateID is required", ErrInvalidParams)
	}
	if p.SendTo == "" {
		return fmt.Errorf("%w: SendTo is required", ErrInvalidParams)
	}
	if !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: SendTo must be a valid email address", ErrInvalidParams)
	}
	return nil
}

// TemplateSender sends provider-side templated emails.
type TemplateSender interface {
	SendTemplate(ctx context.Context, params SendTemplateParams) error
}
