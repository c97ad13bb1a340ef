// Package validation checks incoming expense payloads against the expense
// schema and converts them into models.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"spendlog/internal/models"

	"github.com/go-playground/validator/v10"
)

// Error is a schema violation. Message describes the first failing field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Scalar is a JSON string or number kept as its literal text, so "12.50"
// and 12.50 validate the same way.
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(strings.TrimSpace(str))
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*s = Scalar(data)
	default:
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	return nil
}

// ExpenseUpdate is the body accepted when editing an expense.
type ExpenseUpdate struct {
	Category    string `json:"category" validate:"required,category"`
	Amount      Scalar `json:"amount" validate:"required,amount"`
	Description string `json:"description"`
	Date        Scalar `json:"date" validate:"required,isodate"`
}

// ExpenseCreate is the body accepted when adding an expense. UserID is
// optional on the wire; handlers fill it from the session when absent.
type ExpenseCreate struct {
	UserID Scalar `json:"user_id" validate:"required,number"`
	ExpenseUpdate
}

// Validator holds the configured schema checks.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the expense rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return models.IsCategory(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "amount", func(fl validator.FieldLevel) bool {
		_, err := models.ParseAmount(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// DecodeCreate reads an ExpenseCreate body. A malformed body is reported as
// a schema violation.
func DecodeCreate(data []byte) (ExpenseCreate, error) {
	var in ExpenseCreate
	if err := json.Unmarshal(data, &in); err != nil {
		return in, decodeError(err)
	}
	return in, nil
}

// DecodeUpdate reads an ExpenseUpdate body.
func DecodeUpdate(data []byte) (ExpenseUpdate, error) {
	var in ExpenseUpdate
	if err := json.Unmarshal(data, &in); err != nil {
		return in, decodeError(err)
	}
	return in, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &Error{Field: typeErr.Field, Message: fmt.Sprintf("%q must be a string", typeErr.Field)}
	}
	return &Error{Message: "invalid request body"}
}

// Create checks in and returns the expense it describes.
func (v *Validator) Create(in ExpenseCreate) (*models.Expense, error) {
	if err := v.check(in); err != nil {
		return nil, err
	}
	userID, err := strconv.ParseInt(string(in.UserID), 10, 64)
	if err != nil {
		return nil, &Error{Field: "user_id", Message: `"user_id" must be a number`}
	}
	e, err := v.build(in.ExpenseUpdate)
	if err != nil {
		return nil, err
	}
	e.UserID = userID
	return e, nil
}

// Update checks in and returns the expense fields it describes. ID and
// UserID are left for the caller.
func (v *Validator) Update(in ExpenseUpdate) (*models.Expense, error) {
	if err := v.check(in); err != nil {
		return nil, err
	}
	return v.build(in)
}

func (v *Validator) check(in any) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: message(fe)}
}

func (v *Validator) build(in ExpenseUpdate) (*models.Expense, error) {
	amount, err := models.ParseAmount(string(in.Amount))
	if err != nil {
		return nil, &Error{Field: "amount", Message: `"amount" must be a number`}
	}
	date, err := models.ParseDate(string(in.Date))
	if err != nil {
		return nil, &Error{Field: "date", Message: `"date" must be in ISO 8601 date format`}
	}
	return &models.Expense{
		Category:    strings.TrimSpace(in.Category),
		Amount:      amount,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
	}, nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "category":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(models.Categories(), ", "))
	case "amount":
		if s, ok := fe.Value().(Scalar); ok {
			if _, err := models.ParseAmount(string(s)); errors.Is(err, models.ErrAmountRange) {
				return fmt.Sprintf("%q must be less than 100000000", field)
			}
		}
		return fmt.Sprintf("%q must be a number", field)
	case "number":
		return fmt.Sprintf("%q must be a number", field)
	case "isodate":
		return fmt.Sprintf("%q must be in ISO 8601 date format", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
