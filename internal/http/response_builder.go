package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dailybudget/internal/allocation"
	"dailybudget/internal/core"
	applog "dailybudget/internal/log"
	"dailybudget/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type expenseResponse struct {
	ID        string    `json:"id"`
	Day       int       `json:"day"`
	Amount    string    `json:"amount"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

type dayResponse struct {
	Day       int               `json:"day"`
	Allowance string            `json:"allowance"`
	Spent     string            `json:"spent"`
	Remaining string            `json:"remaining"`
	Locked    bool              `json:"locked"`
	Critical  bool              `json:"critical"`
	Expenses  []expenseResponse `json:"expenses"`
}

type summaryResponse struct {
	TotalBudget           string `json:"total_budget"`
	TotalSpent            string `json:"total_spent"`
	TotalBalance          string `json:"total_balance"`
	IsOverBudget          bool   `json:"is_over_budget"`
	CurrentDailyAllowance string `json:"current_daily_allowance"`
	Projected             string `json:"projected"`
	UsedPercent           string `json:"used_percent"`
	LockedDays            int    `json:"locked_days"`
	UnlockedDays          int    `json:"unlocked_days"`
}

type periodResponse struct {
	Period          string          `json:"period"`
	Policy          string          `json:"policy"`
	BaseDailyTarget string          `json:"base_daily_target"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Days            []dayResponse   `json:"days"`
	Summary         summaryResponse `json:"summary"`
}

func newExpenseResponse(day int, e core.ExpenseRecord) expenseResponse {
	return expenseResponse{
		ID:        e.ID,
		Day:       day,
		Amount:    core.FormatAmount(e.Amount),
		Label:     e.Label,
		CreatedAt: e.CreatedAt,
	}
}

func newPeriodResponse(v services.View) periodResponse {
	l := v.Ledger
	resp := periodResponse{
		Period:          l.Config.Key.String(),
		Policy:          v.Policy,
		BaseDailyTarget: core.FormatAmount(l.Config.BaseDailyTarget),
		Version:         l.Version,
		UpdatedAt:       l.UpdatedAt,
		Days:            make([]dayResponse, 0, len(v.Results)),
		Summary:         newSummaryResponse(v.Summary),
	}
	for _, r := range v.Results {
		d := dayResponse{
			Day:       r.Day,
			Allowance: core.FormatAmount(r.Allowance),
			Spent:     core.FormatAmount(r.Spent),
			Remaining: core.FormatAmount(r.Remaining),
			Locked:    r.Locked,
			Critical:  r.Critical(),
			Expenses:  []expenseResponse{},
		}
		if rec, ok := l.Day(r.Day); ok {
			for _, e := range rec.Expenses {
				d.Expenses = append(d.Expenses, newExpenseResponse(r.Day, e))
			}
		}
		resp.Days = append(resp.Days, d)
	}
	return resp
}

func newSummaryResponse(s allocation.Summary) summaryResponse {
	return summaryResponse{
		TotalBudget:           core.FormatAmount(s.TotalBudget),
		TotalSpent:            core.FormatAmount(s.TotalSpent),
		TotalBalance:          core.FormatAmount(s.TotalBalance),
		IsOverBudget:          s.IsOverBudget,
		CurrentDailyAllowance: core.FormatAmount(s.CurrentDailyAllowance),
		Projected:             core.FormatAmount(s.Projected),
		UsedPercent:           s.UsedPercent.StringFixed(1),
		LockedDays:            s.LockedDays,
		UnlockedDays:          s.UnlockedDays,
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsInvalidInput(err), errors.Is(err, allocation.ErrUnknownPolicy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrExpenseNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRemoteDisabled), errors.Is(err, services.ErrAdvisorDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrMalformedLedger):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends a JSON error. Server errors are logged and their details
// are kept out of the response.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body = errorBody{Error: ve.Err.Error(), Field: ve.Field}
	}

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed",
			applog.FieldError, err,
			applog.FieldStatusCode, status)
		_ = c.Error(err)
		if status == http.StatusInternalServerError {
			body = errorBody{Error: "internal error"}
		}
	}
	c.AbortWithStatusJSON(status, body)
}
