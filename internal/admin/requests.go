package admin

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/angeloszaimis/lbengine/internal/strategy"
)

var httpScheme = regexp.MustCompile(`^https?://`)

type serverRequest struct {
	URL    string `json:"url"`
	Weight *int   `json:"weight"`
}

func (r serverRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, urlRules()...),
		validation.Field(&r.Weight, validation.Min(0)),
	)
}

// weight defaults to 1 when omitted.
func (r serverRequest) weight() int {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

type weightRequest struct {
	URL    string `json:"url"`
	Weight *int   `json:"weight"`
}

func (r weightRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, urlRules()...),
		validation.Field(&r.Weight, validation.NotNil, validation.Min(0)),
	)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (r urlRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required),
	)
}

type strategyRequest struct {
	Type            string `json:"type"`
	WeightedVariant string `json:"weighted_variant"`
}

func (r strategyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(toAny(strategy.Types())...)),
		validation.Field(&r.WeightedVariant, validation.In(strategy.VariantSmooth, strategy.VariantNaive)),
	)
}

func urlRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		is.RequestURL,
		validation.Match(httpScheme).Error("must use http or https"),
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
