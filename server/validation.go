package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xhad/smartnotes/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct returns a validation error naming the first field that
// failed, in declaration order.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return apperr.Validation(first.Field(), formatFieldError(first))
	}
	return apperr.Validation("", "Invalid request body").WithCause(err)
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

type transcriptRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

type youtubeRequest struct {
	URL string `json:"url" validate:"required"`
}

type exportRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"required"`
}

type saveNoteRequest struct {
	Title           string  `json:"title" validate:"required"`
	Transcript      string  `json:"transcript" validate:"required"`
	StructuredNotes string  `json:"structuredNotes" validate:"required"`
	MindmapData     *string `json:"mindmapData,omitempty"`
	Source          string  `json:"source" validate:"required,oneof=live-audio youtube file-upload"`
	SourceURL       *string `json:"sourceUrl,omitempty"`
	FileName        *string `json:"fileName,omitempty"`
}
