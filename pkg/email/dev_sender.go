package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements TemplateSender for local development.
// It saves each send as a JSON file to a directory instead of calling
// the email provider.
type DevSender struct {
	dir string
}

// NewDevSender creates a development sender that saves emails to disk.
// The directory is created on first send if it doesn't exist.
func NewDevSender(dir string) TemplateSender {
	return &DevSender{dir: dir}
}

type devEmailRecord struct {
	Timestamp     string         `json:"timestamp"`
	TemplateID    int64          `json:"template_id"`
	SendTo        string         `json:"send_to"`
	Tag           string         `json:"tag,omitempty"`
	TemplateModel map[string]any `json:"template_model,omitempty"`
}

// SendTemplate saves the templated send as a JSON file in the configured directory.
func (d *DevSender) SendTemplate(ctx context.Context, params SendTemplateParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSendEmail, err)
	}

	now := time.Now()
	identifier := params.Tag
	if identifier == "" {
		identifier = fmt.Sprintf("template_%d", params.TemplateID)
	}
	filename := fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405"), sanitizeFilename(identifier))

	record := devEmailRecord{
		Timestamp:     now.Format(time.RFC3339),
		TemplateID:    params.TemplateID,
		SendTo:        params.SendTo,
		Tag:           params.Tag,
		TemplateModel: params.TemplateModel,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal record: %v", ErrFailedToSendEmail, err)
	}

	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write file: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash, underscore, or dot.
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe, lowercase filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
