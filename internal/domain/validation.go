package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError rejects an edit before it reaches a draft. It names the
// offending field and value.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}()

// translate converts the first validator failure into a ValidationError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{
		Field:  fe.Field(),
		Value:  fe.Value(),
		Reason: describeTag(fe),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return "failed " + fe.Tag()
	}
}

// ValidateAsset checks a single asset.
func ValidateAsset(a Asset) error {
	if err := finite("current_weight", a.CurrentWeight); err != nil {
		return err
	}
	if err := finite("expected_return", a.ExpectedReturn); err != nil {
		return err
	}
	if err := finite("volatility", a.Volatility); err != nil {
		return err
	}
	return translate(validate.Struct(a))
}

// ValidatePortfolio checks every asset and id uniqueness.
func ValidatePortfolio(p Portfolio) error {
	seen := make(map[string]struct{}, len(p.Assets))
	for _, a := range p.Assets {
		if err := ValidateAsset(a); err != nil {
			return err
		}
		if _, dup := seen[a.ID]; dup {
			return &ValidationError{Field: "id", Value: a.ID, Reason: "duplicate asset id"}
		}
		seen[a.ID] = struct{}{}
	}
	if p.TotalValue != nil {
		if err := finite("total_value", *p.TotalValue); err != nil {
			return err
		}
		if *p.TotalValue < 0 {
			return &ValidationError{Field: "total_value", Value: *p.TotalValue, Reason: "must be >= 0"}
		}
	}
	return nil
}

// ValidateConstraints checks bounds and that min does not exceed max.
func ValidateConstraints(c Constraints) error {
	if err := translate(validate.Struct(c)); err != nil {
		return err
	}
	if c.MinAssetWeight != nil && c.MaxAssetWeight != nil && *c.MinAssetWeight > *c.MaxAssetWeight {
		return &ValidationError{
			Field:  "min_asset_weight",
			Value:  *c.MinAssetWeight,
			Reason: fmt.Sprintf("must not exceed max_asset_weight %v", *c.MaxAssetWeight),
		}
	}
	return nil
}

// ValidateInflow checks the inflow amount and currency code.
func ValidateInflow(in Inflow) error {
	if err := finite("amount", in.Amount); err != nil {
		return err
	}
	return translate(validate.Struct(in))
}

// ValidateRiskPosture checks membership in the closed posture set.
func ValidateRiskPosture(p RiskPosture) error {
	if err := validate.Var(string(p), "required,oneof=conservative balanced aggressive"); err != nil {
		return &ValidationError{Field: "risk_posture", Value: p, Reason: "must be one of [conservative balanced aggressive]"}
	}
	return nil
}

// ValidateSectorSentiment checks every score lies in [-1, 1].
func ValidateSectorSentiment(s SectorSentiment) error {
	for sector, score := range s {
		if strings.TrimSpace(sector) == "" {
			return &ValidationError{Field: "sector", Value: sector, Reason: "is required"}
		}
		if math.IsNaN(score) || score < -1 || score > 1 {
			return &ValidationError{Field: "sector_sentiment." + sector, Value: score, Reason: "must be between -1 and 1"}
		}
	}
	return nil
}

// ValidateMode checks the mode value.
func ValidateMode(m Mode) error {
	if !m.Valid() {
		return &ValidationError{Field: "mode", Value: m, Reason: "must be protocol or simulation"}
	}
	return nil
}

// ParseNumber parses operator input for a numeric field, rejecting malformed
// and non-finite values.
func ParseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: raw, Reason: "is not a number"}
	}
	if err := finite(field, v); err != nil {
		return 0, err
	}
	return v, nil
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Reason: "must be finite"}
	}
	return nil
}
