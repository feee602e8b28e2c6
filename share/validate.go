package share

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"lexshare/models"

	"github.com/go-playground/validator/v10"
)

const (
	maxChangelog   = 500
	maxMessage     = 1000
	maxReviewNote  = 500
	maxDetails     = 500
	initialLogText = "Initial version"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// metadataRules holds descriptive fields after normalisation.
type metadataRules struct {
	Title       string   `json:"title" validate:"min=3,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Category    string   `json:"category" validate:"oneof=compliance civil penal administrative eu other"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
}

func validateMetadata(env models.SharedEnvironment) error {
	return translate(validate.Struct(metadataRules{
		Title:       env.Title,
		Description: env.Description,
		Category:    string(env.Category),
		Tags:        env.Tags,
	}))
}

// checkLength validates a free-text field against a maximum length in characters.
func checkLength(field, value string, max int) error {
	if err := validate.Var(value, fmt.Sprintf("max=%d", max)); err != nil {
		return invalid(field, "must be at most %d characters", max)
	}
	return nil
}

// translate turns validator field errors into a *ValidationError naming the first failing field.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// normalizeTags trims, lower-cases and de-duplicates tags, dropping empty ones.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func validVersionMode(mode models.VersionMode) error {
	switch mode {
	case models.VersionReplace, models.VersionCoexist:
		return nil
	}
	return invalid("versionMode", "must be one of: replace, coexist")
}

func validSuggestionStatus(status models.SuggestionStatus) error {
	switch status {
	case "", models.SuggestionPending, models.SuggestionApproved, models.SuggestionRejected:
		return nil
	}
	return invalid("status", "must be one of: pending, approved, rejected")
}

func validReportStatus(status models.ReportStatus, allowEmpty bool) error {
	switch status {
	case models.ReportPending, models.ReportReviewed, models.ReportDismissed:
		return nil
	case "":
		if allowEmpty {
			return nil
		}
	}
	return invalid("status", "must be one of: pending, reviewed, dismissed")
}

func validReportReason(reason models.ReportReason) error {
	switch reason {
	case models.ReasonSpam, models.ReasonInappropriate, models.ReasonCopyright, models.ReasonOther:
		return nil
	}
	return invalid("reason", "must be one of: spam, inappropriate, copyright, other")
}
