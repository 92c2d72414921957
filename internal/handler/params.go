package handler

import (
	"strconv"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// paramID reads a positive int32 path parameter
func paramID(c echo.Context, name string) (int32, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// queryInt32 reads an optional int32 query parameter
func queryInt32(c echo.Context, name string) (*int32, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, false
	}
	out := int32(v)
	return &out, true
}

// queryDate reads an optional YYYY-MM-DD query parameter
func queryDate(c echo.Context, name string) (*time.Time, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// amountParser collects field errors while decoding decimal strings
type amountParser struct {
	errors []ValidationError
}

func (p *amountParser) required(field, raw string) decimal.Decimal {
	if raw == "" {
		p.errors = append(p.errors, ValidationError{Field: field, Message: "Is required"})
		return decimal.Zero
	}
	return p.parse(field, raw)
}

func (p *amountParser) optional(field, raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	d := p.parse(field, raw)
	return &d
}

func (p *amountParser) orZero(field, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	return p.parse(field, raw)
}

// rate reads an interest rate. Rates are not money and keep their full precision.
func (p *amountParser) rate(field, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, _ := p.decimal(field, raw)
	return d
}

// parse reads a money amount, which must be whole cents
func (p *amountParser) parse(field, raw string) decimal.Decimal {
	d, ok := p.decimal(field, raw)
	if ok && !domain.HasCentPrecision(d) {
		p.errors = append(p.errors, ValidationError{Field: field, Message: "Must not have more than 2 decimal places"})
	}
	return d
}

func (p *amountParser) decimal(field, raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.errors = append(p.errors, ValidationError{Field: field, Message: "Must be a valid decimal number"})
		return decimal.Zero, false
	}
	return d, true
}

func (p *amountParser) date(field, raw string, required bool) time.Time {
	if raw == "" {
		if required {
			p.errors = append(p.errors, ValidationError{Field: field, Message: "Is required"})
		}
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		p.errors = append(p.errors, ValidationError{Field: field, Message: "Must be a date in YYYY-MM-DD format"})
	}
	return t
}

func (p *amountParser) failed() bool {
	return len(p.errors) > 0
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
