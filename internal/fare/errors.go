package fare

import (
	"fmt"
	"strings"
)

// Rule names a cross-field invariant. A FieldError with a Rule is a
// structural violation; one without is a plain field format error.
type Rule string

const (
	RuleStopCount         Rule = "stop_count"
	RuleOriginDistance    Rule = "origin_distance"
	RuleMonotonicDistance Rule = "monotonic_distance"
	RuleFirstTableType    Rule = "first_table_type"
	RuleTableType         Rule = "table_type"
	RuleDuplicateSeries   Rule = "duplicate_series"
	RuleDuplicateTab      Rule = "duplicate_tab"
)

// FieldError is one violation reported by a stage validator.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    Rule   `json:"rule,omitempty"`
	// Tables holds the zero-based indices of the tariff tables involved in
	// a duplicate series or tab number.
	Tables []int `json:"tables,omitempty"`
}

// StructuralError is a FieldError that breaks a cross-field rule; its Rule
// is always set.
type StructuralError = FieldError

func (e FieldError) Structural() bool {
	return e.Rule != ""
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every violation found for one stage submission.
type ValidationError struct {
	Stage  Stage        `json:"stage"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("%s stage is invalid: %s", e.Stage, strings.Join(msgs, "; "))
}

// Structural returns the cross-field violations only.
func (e *ValidationError) Structural() []FieldError {
	var out []FieldError
	for _, fe := range e.Errors {
		if fe.Structural() {
			out = append(out, fe)
		}
	}
	return out
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

type collector struct {
	errs []FieldError
}

func (c *collector) add(field, format string, args ...any) {
	c.errs = append(c.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) rule(rule Rule, field, format string, args ...any) *FieldError {
	c.errs = append(c.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...), Rule: rule})
	return &c.errs[len(c.errs)-1]
}

func (c *collector) err(stage Stage) error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Stage: stage, Errors: c.errs}
}

// NotReadyError is returned when an operation needs a stage that has not
// been completed yet.
type NotReadyError struct {
	RouteID      uint
	MissingStage Stage
}

func (e *NotReadyError) Error() string {
	if e.RouteID != 0 {
		return fmt.Sprintf("route %d is not ready: %s stage is incomplete", e.RouteID, e.MissingStage)
	}
	return fmt.Sprintf("route is not ready: %s stage is incomplete", e.MissingStage)
}

// DecodeError rejects a price submission as a whole.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "price payload: " + e.Reason + ": " + e.Err.Error()
	}
	return "price payload: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(err error, format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Err: err}
}
