package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Expense represents a financial expense record owned by one user.
type Expense struct {
	ID          int64  `json:"expense_id"`
	UserID      int64  `json:"user_id"`
	Category    string `json:"category"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
	Date        Date   `json:"date"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryTotal is the aggregated spending of one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Amount `json:"total"`
	Count    int    `json:"count"`
}

// Amount is a monetary value with two decimal places.
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d to two decimal places.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d.Round(2)}
}

// Amount limits. Stored amounts fit DECIMAL(10,2).
const (
	maxAmountIntDigits = 8
	maxAmountDigits    = 64
	maxAmountText      = 128
)

// ErrAmountRange is returned for amounts too large to store.
var ErrAmountRange = errors.New("amount out of range")

var amountLimit = decimal.New(1, maxAmountIntDigits)

// ParseAmount parses a decimal string such as "12.5" or "12.50".
func ParseAmount(s string) (Amount, error) {
	if len(s) > maxAmountText {
		return Amount{}, ErrAmountRange
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return boundedAmount(d)
}

// boundedAmount rounds d after checking its size from the coefficient and
// exponent alone. Rounding or comparing a value such as 1e999999999 would
// expand it to every digit.
func boundedAmount(d decimal.Decimal) (Amount, error) {
	if d.IsZero() {
		return Amount{Decimal: decimal.Zero}, nil
	}
	digits := d.NumDigits()
	if digits > maxAmountDigits {
		return Amount{}, ErrAmountRange
	}
	// |d| < 10^intDigits
	intDigits := digits + int(d.Exponent())
	if intDigits > maxAmountIntDigits {
		return Amount{}, ErrAmountRange
	}
	if intDigits < -2 {
		return Amount{Decimal: decimal.Zero}, nil
	}
	a := NewAmount(d)
	if a.Abs().GreaterThanOrEqual(amountLimit) {
		return Amount{}, ErrAmountRange
	}
	return a, nil
}

// MustAmount is like ParseAmount but panics on malformed input.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number with exactly two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > maxAmountText {
		return ErrAmountRange
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	bounded, err := boundedAmount(d)
	if err != nil {
		return err
	}
	*a = bounded
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.StringFixed(2), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value any) error {
	if value == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	a.Decimal = d.Round(2)
	return nil
}

// Date is a calendar day without a time component, always in UTC.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a YYYY-MM-DD date or an RFC 3339 timestamp. Timestamps
// keep the calendar day as written, ignoring the clock and offset.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t.Date()), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return NewDate(t.Date()), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a date string in any format ParseDate accepts.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers hand back either a time.Time or the
// stored text, which may carry a trailing clock component.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Date())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	*d = NewDate(t.Date())
	return nil
}
