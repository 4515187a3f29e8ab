package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type searchRequest struct {
	Prompt   string `json:"prompt" validate:"max=4096"`
	PageSize int    `json:"page_size" validate:"omitempty,min=1,max=100"`
}

func TestValidateStructOK(t *testing.T) {
	req := searchRequest{Prompt: "a castle on a hill", PageSize: 20}
	require.NoError(t, ValidateStruct(req))
}

func TestValidateStructUsesJSONFieldNames(t *testing.T) {
	req := searchRequest{PageSize: 500}

	err := ValidateStruct(req)
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve, 1)
	require.Equal(t, "page_size", ve[0].Field)
	require.Equal(t, "max", ve[0].Tag)
	require.Equal(t, "100", ve[0].Param)
}

func TestValidationErrorsMessage(t *testing.T) {
	ve := ValidationErrors{
		{Field: "page_size", Tag: "max", Param: "100"},
		{Field: "prompt", Tag: "max", Param: "4096"},
	}
	require.Equal(t, "page_size failed on max=100; prompt failed on max=4096", ve.Error())
}

func TestValidationErrorsEmpty(t *testing.T) {
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}

func TestValidationErrorMessages(t *testing.T) {
	cases := []struct {
		err  ValidationError
		want string
	}{
		{ValidationError{Field: "prompt", Tag: "required"}, "prompt is required"},
		{ValidationError{Field: "page_size", Tag: "min", Param: "1"}, "page size must be at least 1"},
		{ValidationError{Field: "page_size", Tag: "max", Param: "100"}, "page size must be at most 100"},
		{ValidationError{Field: "id", Tag: "uuid4"}, "id must be a valid UUID"},
		{ValidationError{Field: "order", Tag: "oneof", Param: "asc desc"}, "order failed validation: oneof=asc desc"},
		{ValidationError{Field: "prompt", Tag: "alphanum"}, "prompt failed validation: alphanum"},
		{ValidationError{Tag: "required"}, "field is required"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, tc.err.Message())
	}
}
