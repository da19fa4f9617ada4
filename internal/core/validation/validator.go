package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages returns one human readable line per failure.
func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return msgs
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// schemaTitles is the part of a JSON schema used to label messages.
type schemaTitles struct {
	Properties map[string]struct {
		Title string `json:"title"`
	} `json:"properties"`
}

func (v *Validator) Validate(data map[string]interface{}, schema map[string]interface{}) error {
	if len(schema) == 0 {
		// No schema defined, allow any data
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var titles schemaTitles
	_ = json.Unmarshal(schemaJSON, &titles)

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(dataJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var validationErrors []ValidationError
		for _, desc := range result.Errors() {
			field := desc.Field()
			if desc.Type() == "required" {
				if prop, ok := desc.Details()["property"].(string); ok {
					field = prop
				}
			}
			label := field
			if p, ok := titles.Properties[field]; ok && p.Title != "" {
				label = p.Title
			}
			validationErrors = append(validationErrors, ValidationError{
				Field:   field,
				Message: describe(label, desc),
			})
		}
		return &ValidationErrors{Errors: validationErrors}
	}

	return nil
}

func describe(label string, desc gojsonschema.ResultError) string {
	switch desc.Type() {
	case "required", "string_gte":
		return label + " is required"
	case "format":
		return label + " invalid"
	case "invalid_type":
		return fmt.Sprintf("%s must be a %v", label, desc.Details()["expected"])
	default:
		return fmt.Sprintf("%s: %s", label, desc.Description())
	}
}

func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

func GetValidationErrors(err error) *ValidationErrors {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
