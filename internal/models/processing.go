package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Error kinds surfaced by the segmentation core.
var (
	// ErrDomain marks inputs the algorithm cannot handle, such as an image
	// without edges or a percentile query outside [0,1].
	ErrDomain = errors.New("domain error")
	// ErrConfiguration marks invalid parameters. It is raised before any
	// pixel work starts.
	ErrConfiguration = errors.New("configuration error")
)

// JoinOperator combines the hole size and hole intensity conditions.
type JoinOperator string

const (
	JoinAnd JoinOperator = "AND"
	JoinOr  JoinOperator = "OR"
)

// ParseJoinOperator accepts "and" or "or" in any case.
func ParseJoinOperator(s string) (JoinOperator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(JoinAnd):
		return JoinAnd, nil
	case string(JoinOr):
		return JoinOr, nil
	}
	return "", NewValidationError("join_operator", s, `must be "AND" or "OR"`)
}

// UnmarshalText lets config decoders parse the operator case-insensitively.
func (j *JoinOperator) UnmarshalText(text []byte) error {
	op, err := ParseJoinOperator(string(text))
	if err != nil {
		return err
	}
	*j = op
	return nil
}

// Parameters is the configuration record consumed by the segmenter.
// Percentiles are expressed in [0,100].
type Parameters struct {
	MinObjectSize              float64      `toml:"min_object_size" json:"min_object_size"`
	MinHoleSize                float64      `toml:"min_hole_size" json:"min_hole_size"`
	MaxHoleSize                float64      `toml:"max_hole_size" json:"max_hole_size"`
	JoinOperator               JoinOperator `toml:"join_operator" json:"join_operator"`
	MinHoleIntensityPercentile float64      `toml:"min_hole_intensity_percentile" json:"min_hole_intensity_percentile"`
	MaxHoleIntensityPercentile float64      `toml:"max_hole_intensity_percentile" json:"max_hole_intensity_percentile"`
	Greedy                     int          `toml:"greedy" json:"greedy"`
}

// GreedyRange is the nominal magnitude of the greedy bias.
const GreedyRange = 50

// DefaultParameters returns the defaults of the interactive plugin.
func DefaultParameters() Parameters {
	return Parameters{
		MinObjectSize:              100,
		MinHoleSize:                100,
		MaxHoleSize:                math.Inf(1),
		JoinOperator:               JoinAnd,
		MinHoleIntensityPercentile: 0,
		MaxHoleIntensityPercentile: 100,
		Greedy:                     0,
	}
}

// Validate checks every field. A greedy value outside the nominal range is
// not an error since the derived percentile is clamped afterwards.
func (p Parameters) Validate() error {
	if _, err := ParseJoinOperator(string(p.JoinOperator)); err != nil {
		return err
	}

	sizes := []struct {
		name  string
		value float64
	}{
		{"min_object_size", p.MinObjectSize},
		{"min_hole_size", p.MinHoleSize},
		{"max_hole_size", p.MaxHoleSize},
	}
	for _, s := range sizes {
		if math.IsNaN(s.value) || s.value < 0 {
			return NewValidationError(s.name, s.value, "must be a number >= 0")
		}
	}
	if math.IsInf(p.MinObjectSize, 1) || math.IsInf(p.MinHoleSize, 1) {
		return NewValidationError("min_size", "+Inf", "only max_hole_size may be infinite")
	}

	percentiles := []struct {
		name  string
		value float64
	}{
		{"min_hole_intensity_percentile", p.MinHoleIntensityPercentile},
		{"max_hole_intensity_percentile", p.MaxHoleIntensityPercentile},
	}
	for _, pc := range percentiles {
		if math.IsNaN(pc.value) || pc.value < 0 || pc.value > 100 {
			return NewValidationError(pc.name, pc.value, "must be between 0 and 100")
		}
	}
	return nil
}

// Join returns the normalized join operator. Call Validate first.
func (p Parameters) Join() JoinOperator {
	op, _ := ParseJoinOperator(string(p.JoinOperator))
	return op
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Value     interface{}
	Message   string
}

// NewValidationError creates a new validation error
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Message:   message,
	}
}

// Error returns the error message
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}

// Unwrap classifies every validation error as a configuration error.
func (ve *ValidationError) Unwrap() error {
	return ErrConfiguration
}
