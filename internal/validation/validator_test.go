package validation

import (
	"testing"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(dto.StartSessionRequest{QuestionID: 3, DurationSeconds: 60}))

	err := v.Struct(dto.StartSessionRequest{DurationSeconds: 7200})
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, domain.ValidationError{Field: "question_id", Message: "is required"}, verrs[0])
	assert.Equal(t, "duration_seconds", verrs[1].Field)
	assert.Equal(t, "failed lte=3600", verrs[1].Message)
}

func TestValidator_QueryTagsAndNesting(t *testing.T) {
	v := NewValidator()

	err := v.Struct(dto.ListQuestionsQuery{Status: "lost", Limit: 500})
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "status", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "must be one of")
	assert.Equal(t, "limit", verrs[1].Field)
	assert.Equal(t, "must be at most 200", verrs[1].Message)

	err = v.Struct(dto.CreateQuestionRequest{Text: "Q", Answer: "A", Choices: []string{"A) x", ""}})
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "choices[1]", verrs[0].Field)
}

func TestValidator_NonStruct(t *testing.T) {
	err := NewValidator().Struct("not a struct")
	assert.True(t, domain.IsCode(err, domain.ErrInvalidInput))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := ParseID("id", raw)
		var verrs domain.ValidationErrors
		require.ErrorAs(t, err, &verrs, raw)
		assert.Equal(t, "id", verrs[0].Field)
	}
}
