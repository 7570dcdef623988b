package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tanukilabs/questrun/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateTopic returns an error if the value is not a known topic.
func ValidateTopic(field string, topic types.Topic) *ValidationError {
	if !types.ValidTopic(topic) {
		return &ValidationError{
			Field:   field,
			Message: "must be a known topic",
		}
	}
	return nil
}

// ValidateDifficulty returns an error if the value is outside the 1-3 scale.
func ValidateDifficulty(field string, d types.Difficulty) *ValidationError {
	if d < types.DifficultyRookie || d > types.DifficultyExplorer {
		return &ValidationError{
			Field:   field,
			Message: "must be between 1 and 3",
		}
	}
	return nil
}

var activityTypes = []string{
	string(types.TypeMultipleChoice),
	string(types.TypeMapClick),
	string(types.TypeFlashcard),
	string(types.TypeScenario),
	string(types.TypeInfo),
}

const (
	maxTextLength     = 2000
	maxIDLength       = 128
	maxOptionCount    = 8
	maxDistractorLen  = 200
	maxDistractorSize = 8
)

// ValidateActivity checks an ingested activity and appends any failures
// to the collector. Field names are prefixed so bulk ingest errors
// point at the offending element.
func ValidateActivity(c *Collector, prefix string, a types.Activity) {
	c.Add(ValidateRequired(prefix+".id", a.ID))
	c.Add(ValidateMaxLength(prefix+".id", a.ID, maxIDLength))
	c.Add(ValidateEnum(prefix+".type", string(a.Type), activityTypes))
	c.Add(ValidateTopic(prefix+".topic", a.Topic))
	c.Add(ValidateDifficulty(prefix+".difficulty", a.Difficulty))
	c.Add(ValidateUTF8(prefix+".story", a.Story))
	c.Add(ValidateMaxLength(prefix+".story", a.Story, maxTextLength))
	c.Add(ValidateUTF8(prefix+".question", a.Question))
	c.Add(ValidateMaxLength(prefix+".question", a.Question, maxTextLength))

	if a.Interactive() {
		c.Add(ValidateRequired(prefix+".question", a.Question))
		if len(a.Options) > maxOptionCount {
			c.Add(&ValidationError{
				Field:   prefix + ".options",
				Message: fmt.Sprintf("must not exceed %d options", maxOptionCount),
			})
		}
		for i, opt := range a.Options {
			field := fmt.Sprintf("%s.options[%d]", prefix, i)
			c.Add(ValidateRequired(field+".id", opt.ID))
			c.Add(ValidateRequired(field+".text", opt.Text))
			c.Add(ValidateUTF8(field+".text", opt.Text))
		}
	}
}

// ValidateFactSeed checks an ingested fact seed and appends any failures
// to the collector.
func ValidateFactSeed(c *Collector, prefix string, f types.FactSeed) {
	c.Add(ValidateRequired(prefix+".id", f.ID))
	c.Add(ValidateMaxLength(prefix+".id", f.ID, maxIDLength))
	c.Add(ValidateTopic(prefix+".topic", f.Topic))
	c.Add(ValidateDifficulty(prefix+".difficulty", f.Difficulty))
	c.Add(ValidateRequired(prefix+".answer", f.Answer))
	c.Add(ValidateUTF8(prefix+".story", f.Story))
	c.Add(ValidateMaxLength(prefix+".story", f.Story, maxTextLength))
	c.Add(ValidateUTF8(prefix+".question", f.Question))
	c.Add(ValidateMaxLength(prefix+".question", f.Question, maxTextLength))
	if f.Story == "" && f.Question == "" {
		c.Add(&ValidationError{
			Field:   prefix,
			Message: "must have a story or a question",
		})
	}
	if len(f.Distractors) > maxDistractorSize {
		c.Add(&ValidationError{
			Field:   prefix + ".distractors",
			Message: fmt.Sprintf("must not exceed %d distractors", maxDistractorSize),
		})
	}
	for i, d := range f.Distractors {
		field := fmt.Sprintf("%s.distractors[%d]", prefix, i)
		c.Add(ValidateRequired(field, d))
		c.Add(ValidateMaxLength(field, d, maxDistractorLen))
	}
}
