package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

// parsePeriod reads the :year and :month path parameters.
func parsePeriod(c *gin.Context) (core.PeriodKey, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return core.PeriodKey{}, &core.ValidationError{Field: "year", Err: core.ErrInvalidYear}
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return core.PeriodKey{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	key := core.PeriodKey{Year: year, Month: month}
	if err := key.Validate(); err != nil {
		return core.PeriodKey{}, err
	}
	return key, nil
}

// parseDay reads the :day path parameter and checks it against the period.
func parseDay(c *gin.Context, key core.PeriodKey) (int, error) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > key.DaysIn() {
		return 0, &core.ValidationError{Field: "day", Err: core.ErrInvalidDay}
	}
	return day, nil
}

// amountField accepts an amount as a JSON string ("12,50") or number (12.5).
type amountField struct {
	decimal.Decimal
	set bool
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal, a.set = d, true
	return nil
}

type addExpenseRequest struct {
	Amount amountField `json:"amount"`
	Label  string      `json:"label"`
}

// parseAddExpense decodes the JSON body of an add-expense request.
func parseAddExpense(c *gin.Context) (decimal.Decimal, string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("read body: %w", err)
	}
	var req addExpenseRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if core.IsInvalidInput(err) {
			return decimal.Zero, "", err
		}
		return decimal.Zero, "", &core.ValidationError{Field: "body", Err: errors.New("invalid JSON body")}
	}
	if !req.Amount.set {
		return decimal.Zero, "", &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	return req.Amount.Decimal, sanitizeInput(req.Label), nil
}

// readReceipt returns the uploaded "image" part and its media type.
func readReceipt(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReceiptBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, "", &core.ValidationError{Field: "image", Err: errors.New("missing image upload")}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", &core.ValidationError{Field: "image", Err: errors.New("empty image")}
	}

	mediaType := http.DetectContentType(data)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return data, mediaType, nil
}
