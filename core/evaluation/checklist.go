package evaluation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/event"
)

// SCALE answers range over [ScaleMin, ScaleMax] inclusive.
const (
	ScaleMin = 1
	ScaleMax = 5
)

var (
	ErrMultipleResponseKinds   = errors.New("a response must set exactly one response kind")
	ErrResponseKindMismatch    = errors.New("response kind does not match the question type")
	ErrMissingRequiredResponse = errors.New("required question has no response")
	ErrScaleOutOfRange         = fmt.Errorf("scale response must be between %d and %d", ScaleMin, ScaleMax)
	ErrUnknownQuestion         = errors.New("response references an unknown or inactive question")
	ErrDuplicateResponse       = errors.New("question answered more than once")
)

// ValidateResponse checks one raw answer against its question. Exactly one
// response kind must be set, it must match the question type, and SCALE
// answers must be in range. Empty text counts as no answer.
func ValidateResponse(q event.Question, r RawResponse) (ChecklistResponse, error) {
	resp := ChecklistResponse{QuestionID: q.ID}

	kinds := 0
	if r.BooleanResponse != nil {
		kinds++
	}
	if r.ScaleResponse != nil {
		kinds++
	}
	if text := textValue(r.TextResponse); text != nil {
		kinds++
	}
	if kinds > 1 {
		return resp, ErrMultipleResponseKinds
	}
	if kinds == 0 {
		if q.IsRequired {
			return resp, ErrMissingRequiredResponse
		}
		return resp, nil
	}

	switch q.Type {
	case event.QuestionYesNo:
		if r.BooleanResponse == nil {
			return resp, ErrResponseKindMismatch
		}
		resp.BooleanResponse = r.BooleanResponse
	case event.QuestionScale:
		if r.ScaleResponse == nil {
			return resp, ErrResponseKindMismatch
		}
		if *r.ScaleResponse < ScaleMin || *r.ScaleResponse > ScaleMax {
			return resp, ErrScaleOutOfRange
		}
		resp.ScaleResponse = r.ScaleResponse
	case event.QuestionText:
		text := textValue(r.TextResponse)
		if text == nil {
			return resp, ErrResponseKindMismatch
		}
		resp.TextResponse = text
	default:
		return resp, ErrUnknownQuestion
	}
	return resp, nil
}

// ValidateResponses checks a full answer sheet against the active questions of
// a checklist. Every active required question must be answered, every answer
// must reference a known active question, and no question may be answered twice.
// Answers to optional questions that were skipped are dropped from the result.
func ValidateResponses(questions []event.Question, responses []RawResponse) ([]ChecklistResponse, error) {
	return validateSheet(questions, responses, true)
}

// ValidateDraftResponses is ValidateResponses without the required-question
// check: a draft may leave any question unanswered.
func ValidateDraftResponses(questions []event.Question, responses []RawResponse) ([]ChecklistResponse, error) {
	return validateSheet(questions, responses, false)
}

func validateSheet(questions []event.Question, responses []RawResponse, strict bool) ([]ChecklistResponse, error) {
	byID := make(map[string]event.Question, len(questions))
	for _, q := range questions {
		if q.IsActive {
			byID[q.ID] = q
		}
	}

	var flds []core.FieldError
	seen := make(map[string]RawResponse, len(responses))
	for _, r := range responses {
		if _, ok := byID[r.QuestionID]; !ok {
			flds = append(flds, core.FieldError{Field: r.QuestionID, Error: ErrUnknownQuestion.Error()})
			continue
		}
		if _, dup := seen[r.QuestionID]; dup {
			flds = append(flds, core.FieldError{Field: r.QuestionID, Error: ErrDuplicateResponse.Error()})
			continue
		}
		seen[r.QuestionID] = r
	}

	validated := make([]ChecklistResponse, 0, len(seen))
	for _, q := range questions {
		if !q.IsActive {
			continue
		}
		r, answered := seen[q.ID]
		if !answered {
			if q.IsRequired && strict {
				flds = append(flds, core.FieldError{Field: q.ID, Error: ErrMissingRequiredResponse.Error()})
			}
			continue
		}
		resp, err := ValidateResponse(q, r)
		if err != nil {
			if !strict && err == ErrMissingRequiredResponse {
				continue
			}
			flds = append(flds, core.FieldError{Field: q.ID, Error: err.Error()})
			continue
		}
		if resp.BooleanResponse == nil && resp.ScaleResponse == nil && resp.TextResponse == nil {
			continue
		}
		validated = append(validated, resp)
	}

	if len(flds) > 0 {
		return nil, core.NewValidationError(errors.New("invalid checklist responses"), flds...)
	}
	return validated, nil
}

func textValue(s *string) *string {
	if s == nil {
		return nil
	}
	text := strings.TrimSpace(*s)
	if text == "" {
		return nil
	}
	return &text
}
