package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/event"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func question(id string, typ event.QuestionType, required bool) event.Question {
	return event.Question{ID: id, Type: typ, IsRequired: required, IsActive: true}
}

func TestValidateResponse(t *testing.T) {
	yesNo := question("q1", event.QuestionYesNo, true)
	scale := question("q2", event.QuestionScale, true)
	text := question("q3", event.QuestionText, false)

	tests := []struct {
		name     string
		question event.Question
		response RawResponse
		wantErr  error
	}{
		{"yes/no answered", yesNo, RawResponse{QuestionID: "q1", BooleanResponse: boolPtr(true)}, nil},
		{"scale in range", scale, RawResponse{QuestionID: "q2", ScaleResponse: intPtr(5)}, nil},
		{"text answered", text, RawResponse{QuestionID: "q3", TextResponse: strPtr("solid methodology")}, nil},
		{"optional text skipped", text, RawResponse{QuestionID: "q3"}, nil},
		{"empty text counts as skipped", text, RawResponse{QuestionID: "q3", TextResponse: strPtr("   ")}, nil},
		{
			"two kinds at once", yesNo,
			RawResponse{QuestionID: "q1", BooleanResponse: boolPtr(true), ScaleResponse: intPtr(3)},
			ErrMultipleResponseKinds,
		},
		{
			"required skipped", yesNo,
			RawResponse{QuestionID: "q1"},
			ErrMissingRequiredResponse,
		},
		{
			"scale below range", scale,
			RawResponse{QuestionID: "q2", ScaleResponse: intPtr(0)},
			ErrScaleOutOfRange,
		},
		{
			"scale above range", scale,
			RawResponse{QuestionID: "q2", ScaleResponse: intPtr(6)},
			ErrScaleOutOfRange,
		},
		{
			"kind does not match question type", scale,
			RawResponse{QuestionID: "q2", BooleanResponse: boolPtr(true)},
			ErrResponseKindMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ValidateResponse(tt.question, tt.response)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.question.ID, resp.QuestionID)
		})
	}
}

func TestValidateResponses(t *testing.T) {
	questions := []event.Question{
		question("q1", event.QuestionYesNo, true),
		question("q2", event.QuestionScale, true),
		question("q3", event.QuestionText, false),
		{ID: "q4", Type: event.QuestionYesNo, IsRequired: true, IsActive: false}, // deactivated
	}

	t.Run("full valid sheet", func(t *testing.T) {
		got, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(true)},
			{QuestionID: "q2", ScaleResponse: intPtr(4)},
			{QuestionID: "q3", TextResponse: strPtr("ok")},
		})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("optional question may be skipped", func(t *testing.T) {
		got, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(false)},
			{QuestionID: "q2", ScaleResponse: intPtr(1)},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("deactivated question needs no answer and takes none", func(t *testing.T) {
		_, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(true)},
			{QuestionID: "q2", ScaleResponse: intPtr(3)},
			{QuestionID: "q4", BooleanResponse: boolPtr(true)},
		})
		assertFieldError(t, err, "q4", ErrUnknownQuestion.Error())
	})

	t.Run("missing required response", func(t *testing.T) {
		_, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(true)},
		})
		assertFieldError(t, err, "q2", ErrMissingRequiredResponse.Error())
	})

	t.Run("unknown question", func(t *testing.T) {
		_, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(true)},
			{QuestionID: "q2", ScaleResponse: intPtr(3)},
			{QuestionID: "nope", BooleanResponse: boolPtr(true)},
		})
		assertFieldError(t, err, "nope", ErrUnknownQuestion.Error())
	})

	t.Run("duplicate answer", func(t *testing.T) {
		_, err := ValidateResponses(questions, []RawResponse{
			{QuestionID: "q1", BooleanResponse: boolPtr(true)},
			{QuestionID: "q1", BooleanResponse: boolPtr(false)},
			{QuestionID: "q2", ScaleResponse: intPtr(3)},
		})
		assertFieldError(t, err, "q1", ErrDuplicateResponse.Error())
	})

	t.Run("no checklist questions accepts empty sheet", func(t *testing.T) {
		got, err := ValidateResponses(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func assertFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "expected *core.ValidationError, got %T", err)
	for _, fld := range vErr.Fields {
		if fld.Field == field {
			assert.Equal(t, msg, fld.Error)
			return
		}
	}
	t.Errorf("no field error for %q in %v", field, vErr.Fields)
}
