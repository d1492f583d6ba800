package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	applog "dailybudget/internal/log"
)

func (s *Server) handlePolicies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policies": s.budget.Policies()})
}

func (s *Server) handleGetPeriod(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := s.budget.View(c.Request.Context(), key, c.Query("policy"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPeriodResponse(view))
}

func (s *Server) handleAddExpense(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	day, err := parseDay(c, key)
	if err != nil {
		writeError(c, err)
		return
	}
	amount, label, err := parseAddExpense(c)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := s.budget.AddExpense(c.Request.Context(), key, day, amount, label)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExpenseResponse(day, rec))
}

func (s *Server) handleRemoveExpense(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	day, err := parseDay(c, key)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.budget.RemoveExpense(c.Request.Context(), key, day, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleScanReceipt(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	day, err := parseDay(c, key)
	if err != nil {
		writeError(c, err)
		return
	}
	image, mediaType, err := readReceipt(c)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := s.budget.ScanReceipt(c.Request.Context(), key, day, image, mediaType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExpenseResponse(day, rec))
}

func (s *Server) handleReset(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	l, err := s.budget.Reset(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": key.String(), "version": l.Version})
}

func (s *Server) handlePull(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	l, changed, err := s.budget.PullRemote(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": key.String(), "version": l.Version, "changed": changed})
}

func (s *Server) handleAdvice(c *gin.Context) {
	key, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	advice, err := s.budget.Advise(ctx, key)
	if err != nil {
		writeError(c, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Advice generated",
		applog.FieldOperation, applog.OpAdvise,
		applog.FieldPeriod, key.String())
	c.JSON(http.StatusOK, gin.H{"period": key.String(), "advice": advice})
}
