package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"lexshare/inflight"
	"lexshare/share"
	"lexshare/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Error codes sent in utils.APIError.Code.
const (
	CodeValidation      = "validation"
	CodeNotOwner        = "not_owner"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeNotPending      = "not_pending"
	CodeSelfSuggestion  = "self_suggestion"
	CodeDuplicateReport = "duplicate_report"
	CodeBusy            = "busy"
)

// respondError maps a service error onto its HTTP status and error code.
func respondError(c *gin.Context, err error) {
	var verr *share.ValidationError
	switch {
	case errors.As(err, &verr):
		body := utils.APIError{Error: verr.Error(), Code: CodeValidation}
		if verr.Field != "" {
			body.Fields = map[string]string{verr.Field: verr.Message}
		}
		utils.GinErrorBody(c, http.StatusBadRequest, body)
	case errors.Is(err, share.ErrNotOwner):
		utils.GinErrorCode(c, http.StatusForbidden, CodeNotOwner, share.ErrNotOwner.Error())
	case errors.Is(err, share.ErrForbidden):
		utils.GinErrorCode(c, http.StatusForbidden, CodeForbidden, share.ErrForbidden.Error())
	case errors.Is(err, share.ErrNotFound):
		utils.GinErrorCode(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, share.ErrNotPending):
		utils.GinErrorCode(c, http.StatusConflict, CodeNotPending, share.ErrNotPending.Error())
	case errors.Is(err, share.ErrSelfSuggestion):
		utils.GinErrorCode(c, http.StatusBadRequest, CodeSelfSuggestion, share.ErrSelfSuggestion.Error())
	case errors.Is(err, share.ErrDuplicateReport):
		utils.GinErrorCode(c, http.StatusConflict, CodeDuplicateReport, share.ErrDuplicateReport.Error())
	case errors.Is(err, inflight.ErrBusy):
		utils.GinErrorCode(c, http.StatusConflict, CodeBusy, inflight.ErrBusy.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.GinInternalServerError(c, "Internal server error")
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes gin's binding validator report fields by their JSON names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the request body into obj and answers 400 on failure.
// When optional is set an empty body leaves obj untouched.
func bindJSON(c *gin.Context, obj any, optional bool) bool {
	if optional && (c.Request.Body == nil || c.Request.ContentLength == 0) {
		return true
	}
	err := c.ShouldBindJSON(obj)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describeBindingError(fe)
	}
	first := fieldErrs[0]
	utils.GinErrorBody(c, http.StatusBadRequest, utils.APIError{
		Error:  fmt.Sprintf("Invalid request body: %s %s", first.Field(), fields[first.Field()]),
		Code:   CodeValidation,
		Fields: fields,
	})
	return false
}

func describeBindingError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}
