package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateValid(t *testing.T) {
	v := New()
	in, err := DecodeCreate([]byte(`{"user_id":"7","category":"Food","amount":"12.5","description":"Lunch","date":"2024-01-01"}`))
	require.NoError(t, err)

	e, err := v.Create(in)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.UserID)
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, "12.50", e.Amount.String())
	assert.Equal(t, "Lunch", e.Description)
	assert.Equal(t, "2024-01-01", e.Date.String())
}

func TestCreateNumbersAndTimestamps(t *testing.T) {
	v := New()
	in, err := DecodeCreate([]byte(`{"user_id":3,"category":"Dining Out","amount":9.999,"date":"2024-05-06T10:00:00Z"}`))
	require.NoError(t, err)

	e, err := v.Create(in)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.UserID)
	assert.Equal(t, "10.00", e.Amount.String(), "amount is rounded to two places")
	assert.Equal(t, "", e.Description)
	assert.Equal(t, "2024-05-06", e.Date.String())
}

func TestCreateInvalid(t *testing.T) {
	v := New()
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing user", `{"category":"Food","amount":1,"date":"2024-01-01"}`, "user_id", `"user_id" is required`},
		{"non numeric user", `{"user_id":"abc","category":"Food","amount":1,"date":"2024-01-01"}`, "user_id", `"user_id" must be a number`},
		{"missing category", `{"user_id":1,"amount":1,"date":"2024-01-01"}`, "category", `"category" is required`},
		{"unknown category", `{"user_id":1,"category":"Transport","amount":1,"date":"2024-01-01"}`, "category", `"category" must be one of`},
		{"missing amount", `{"user_id":1,"category":"Food","date":"2024-01-01"}`, "amount", `"amount" is required`},
		{"bad amount", `{"user_id":1,"category":"Food","amount":"ten","date":"2024-01-01"}`, "amount", `"amount" must be a number`},
		{"huge exponent amount", `{"user_id":1,"category":"Food","amount":1e999999999,"date":"2024-01-01"}`, "amount", `"amount" must be less than 100000000`},
		{"amount too large", `{"user_id":1,"category":"Food","amount":"100000000","date":"2024-01-01"}`, "amount", `"amount" must be less than 100000000`},
		{"missing date", `{"user_id":1,"category":"Food","amount":1}`, "date", `"date" is required`},
		{"bad date", `{"user_id":1,"category":"Food","amount":1,"date":"yesterday"}`, "date", `"date" must be in ISO 8601 date format`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeCreate([]byte(tt.body))
			require.NoError(t, err)

			_, err = v.Create(in)
			var verr *Error
			require.True(t, errors.As(err, &verr), "expected *Error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Message, tt.msg)
		})
	}
}

func TestCreateReportsFirstViolation(t *testing.T) {
	in, err := DecodeCreate([]byte(`{"category":"Nope","date":"bad"}`))
	require.NoError(t, err)

	_, err = New().Create(in)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "user_id", verr.Field)
}

func TestDecodeMalformed(t *testing.T) {
	for _, body := range []string{``, `[`, `{"amount":true}`, `{"amount":{}}`} {
		_, err := DecodeCreate([]byte(body))
		var verr *Error
		assert.True(t, errors.As(err, &verr), "body %q", body)
	}
}

func TestDecodeRejectsNonStringText(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`{"user_id":1,"category":"Food","amount":1,"description":5,"date":"2024-01-01"}`, "description"},
		{`{"user_id":1,"category":7,"amount":1,"date":"2024-01-01"}`, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := DecodeCreate([]byte(tt.body))
			var verr *Error
			require.True(t, errors.As(err, &verr), "expected *Error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, fmt.Sprintf("%q must be a string", tt.field), verr.Message)
		})
	}
}

func TestDescriptionIsOptional(t *testing.T) {
	in, err := DecodeUpdate([]byte(`{"category":" Food ","amount":1,"description":null,"date":"2024-01-01"}`))
	require.NoError(t, err)

	e, err := New().Update(in)
	require.NoError(t, err)
	assert.Equal(t, "Food", e.Category)
	assert.Empty(t, e.Description)
}

func TestUpdateDoesNotNeedUser(t *testing.T) {
	in, err := DecodeUpdate([]byte(`{"category":"Travel","amount":"250","description":"Train","date":"2024-07-01"}`))
	require.NoError(t, err)

	e, err := New().Update(in)
	require.NoError(t, err)
	assert.Equal(t, "Travel", e.Category)
	assert.Equal(t, "250.00", e.Amount.String())
	assert.Zero(t, e.UserID)
}
