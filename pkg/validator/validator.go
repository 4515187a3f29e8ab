package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders the failure as a sentence keyed on the rule tag. Fields
// are reported under their JSON names with underscores spelled out.
func (e ValidationError) Message() string {
	field := strings.ToLower(strings.ReplaceAll(e.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	switch e.Tag {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + e.Param
	case "max":
		return field + " must be at most " + e.Param
	case "uuid4":
		return field + " must be a valid UUID"
	default:
		if e.Param != "" {
			return field + " failed validation: " + e.Tag + "=" + e.Param
		}
		return field + " failed validation: " + e.Tag
	}
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	for i, err := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Field)
		b.WriteString(" failed on ")
		b.WriteString(err.Tag)
		if err.Param != "" {
			b.WriteString("=")
			b.WriteString(err.Param)
		}
	}
	return b.String()
}

// ValidateStruct runs the tag rules declared on s and reports every failure,
// not just the first one.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	failures := make(ValidationErrors, len(ve))
	for i, fe := range ve {
		failures[i] = ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		}
	}
	return failures
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports struct fields under their JSON wire names so
// validation failures line up with what the client actually sent.
func jsonFieldName(fld reflect.StructField) string {
	tag := fld.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
