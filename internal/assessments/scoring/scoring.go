// Package scoring implements response validation, point calculation,
// threshold evaluation and priority escalation for assessments. Everything
// here is a pure function over domain values; persistence lives elsewhere.
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
)

// ValidationResult reports the outcome of validating and scoring one answer.
type ValidationResult struct {
	Valid  bool
	Errors []string
	Score  float64
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Errors: []string{fmt.Sprintf(format, args...)}}
}

// ValidateResponse checks one answer against its question and computes the
// points earned. Unknown question types validate successfully and earn full
// points: a template ahead of this binary must not zero out a client's
// score, and an inflated score only suppresses opportunities rather than
// inventing them.
func ValidateResponse(q domain.Question, value any) ValidationResult {
	if isEmpty(value) {
		if q.Required {
			return invalid("response is required")
		}
		return ValidationResult{Valid: true}
	}

	switch q.Type {
	case domain.QuestionText:
		return validateText(q, value)
	case domain.QuestionNumber:
		return validateNumber(q, value)
	case domain.QuestionBoolean:
		return validateBoolean(q, value)
	case domain.QuestionSingleChoice:
		return validateSingleChoice(q, value)
	case domain.QuestionMultipleChoice:
		return validateMultipleChoice(q, value)
	case domain.QuestionScale:
		return validateScale(q, value)
	default:
		return ValidationResult{Valid: true, Score: q.MaxPoints}
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// validateText awards full points for any answer passing length checks.
// Free text carries no gradable signal, so presence is the score.
func validateText(q domain.Question, value any) ValidationResult {
	s, ok := value.(string)
	if !ok {
		return invalid("expected text")
	}
	if q.Validation.MinLength != nil && len(s) < *q.Validation.MinLength {
		return invalid("must be at least %d characters", *q.Validation.MinLength)
	}
	if q.Validation.MaxLength != nil && len(s) > *q.Validation.MaxLength {
		return invalid("must be at most %d characters", *q.Validation.MaxLength)
	}
	return ValidationResult{Valid: true, Score: q.MaxPoints}
}

func validateNumber(q domain.Question, value any) ValidationResult {
	n, ok := toFloat(value)
	if !ok {
		return invalid("expected a number")
	}
	if q.Validation.Min != nil && n < *q.Validation.Min {
		return invalid("must be at least %g", *q.Validation.Min)
	}
	if q.Validation.Max != nil && n > *q.Validation.Max {
		return invalid("must be at most %g", *q.Validation.Max)
	}
	return ValidationResult{Valid: true, Score: q.MaxPoints}
}

// validateBoolean awards full points only for true. A "no" answer to a
// posture question ("do you have offsite backups?") is exactly the gap the
// engine exists to find, so it scores zero.
func validateBoolean(q domain.Question, value any) ValidationResult {
	b, ok := toBool(value)
	if !ok {
		return invalid("expected true or false")
	}
	if b {
		return ValidationResult{Valid: true, Score: q.MaxPoints}
	}
	return ValidationResult{Valid: true, Score: 0}
}

// validateSingleChoice scores the chosen option's value against the best
// option on offer.
func validateSingleChoice(q domain.Question, value any) ValidationResult {
	key, ok := toOptionKey(value)
	if !ok {
		return invalid("expected a selected option")
	}
	opt, found := findOption(q.Options, key)
	if !found {
		return invalid("%q is not a valid option", key)
	}
	maxVal := maxOptionValue(q.Options)
	if maxVal <= 0 {
		return ValidationResult{Valid: true, Score: 0}
	}
	return ValidationResult{Valid: true, Score: opt.Value / maxVal * q.MaxPoints}
}

// validateMultipleChoice scores by coverage: selecting more of the offered
// options earns proportionally more points.
func validateMultipleChoice(q domain.Question, value any) ValidationResult {
	raw, ok := value.([]any)
	if !ok {
		return invalid("expected a list of selected options")
	}
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		key, ok := toOptionKey(item)
		if !ok {
			return invalid("expected a selected option")
		}
		if _, found := findOption(q.Options, key); !found {
			return invalid("%q is not a valid option", key)
		}
		seen[key] = struct{}{}
	}
	if len(q.Options) == 0 {
		return ValidationResult{Valid: true, Score: 0}
	}
	coverage := float64(len(seen)) / float64(len(q.Options))
	return ValidationResult{Valid: true, Score: coverage * q.MaxPoints}
}

func validateScale(q domain.Question, value any) ValidationResult {
	n, ok := toFloat(value)
	if !ok {
		return invalid("expected a number")
	}
	scaleMax := q.ScaleMax
	if scaleMax <= 0 {
		scaleMax = 10
	}
	if n < 0 || n > scaleMax {
		return invalid("must be between 0 and %g", scaleMax)
	}
	return ValidationResult{Valid: true, Score: n / scaleMax * q.MaxPoints}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		return b, err == nil
	default:
		return false, false
	}
}

// toOptionKey accepts either the option key directly or a numeric value
// rendered as a string, which is how some frontends submit selections.
func toOptionKey(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func findOption(options []domain.Option, key string) (domain.Option, bool) {
	for _, opt := range options {
		if strings.EqualFold(opt.Key, key) || strings.EqualFold(opt.Label, key) {
			return opt, true
		}
	}
	return domain.Option{}, false
}

func maxOptionValue(options []domain.Option) float64 {
	var max float64
	for _, opt := range options {
		if opt.Value > max {
			max = opt.Value
		}
	}
	return max
}
