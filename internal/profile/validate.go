package profile

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode classifies a configuration defect.
type ErrorCode string

const (
	// CodeFieldWeight flags an index field weight that is not finite and > 0.
	CodeFieldWeight ErrorCode = "field_weight"
	// CodeEmptyRanking flags a ranking config with no enabled factor.
	CodeEmptyRanking ErrorCode = "empty_ranking"
	// CodeDimensionMismatch flags an enabled semantic model whose dimensions
	// differ from the shared embedding dimensions.
	CodeDimensionMismatch ErrorCode = "dimension_mismatch"
	// CodeConstraint flags a tag-level constraint violation (range, required, enum).
	CodeConstraint ErrorCode = "constraint"
)

// ConfigError is one validation defect, addressable by path so a
// configuration UI can surface it next to the offending setting.
type ConfigError struct {
	Code    ErrorCode `json:"code"`
	Path    string    `json:"path"`
	Message string    `json:"message"`
}

// Error implements error.
func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Code)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks p for internal consistency. It is pure and collects every
// defect instead of stopping at the first, so a caller can surface all
// problems at once. An empty slice means the profile is valid.
func Validate(p *Profile) []ConfigError {
	var errs []ConfigError

	for i, f := range p.Engine.IndexFields {
		if math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0) || f.Weight <= 0 {
			errs = append(errs, ConfigError{
				Code:    CodeFieldWeight,
				Path:    fmt.Sprintf("engine.index_fields[%d].weight", i),
				Message: fmt.Sprintf("field %q weight must be a finite number > 0, got %v", f.Name, f.Weight),
			})
		}
	}

	if len(p.Ranking.EnabledFactors()) == 0 {
		errs = append(errs, ConfigError{
			Code:    CodeEmptyRanking,
			Path:    "ranking.factors",
			Message: "at least one ranking factor must be enabled",
		})
	}
	for i, f := range p.Ranking.Factors {
		if f.Enabled && (math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0)) {
			errs = append(errs, ConfigError{
				Code:    CodeConstraint,
				Path:    fmt.Sprintf("ranking.factors[%d].weight", i),
				Message: fmt.Sprintf("factor %q weight must be finite", f.Name),
			})
		}
	}

	for i, m := range p.Engine.Models {
		if m.Enabled && m.Dimensions != p.Engine.Embedding.Dimensions {
			errs = append(errs, ConfigError{
				Code: CodeDimensionMismatch,
				Path: fmt.Sprintf("engine.models[%d].dimensions", i),
				Message: fmt.Sprintf("model %q declares %d dimensions but embedding config declares %d",
					m.Name, m.Dimensions, p.Engine.Embedding.Dimensions),
			})
		}
	}

	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				errs = append(errs, ConfigError{
					Code:    CodeConstraint,
					Path:    namespaceToPath(ve.Namespace()),
					Message: fmt.Sprintf("failed %q constraint (value %v)", ve.Tag(), ve.Value()),
				})
			}
		} else {
			errs = append(errs, ConfigError{
				Code:    CodeConstraint,
				Path:    "profile",
				Message: err.Error(),
			})
		}
	}

	return errs
}

// namespaceToPath converts a validator namespace like
// "Profile.Engine.Fuzzy.MaxEdits" to "engine.fuzzy.max_edits".
func namespaceToPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:] // drop the root struct name
	}
	for i, part := range parts {
		parts[i] = toSnake(part)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			// Keep runs of capitals together (LTR -> ltr, not l_t_r).
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') && s[i-1] != '[' && s[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
