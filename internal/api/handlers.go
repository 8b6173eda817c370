package api

import (
	"errors"
	"net/http"
	"strings"

	"BiasSentinel/internal/model"

	"github.com/gin-gonic/gin"
)

func symbolParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
}

// handleListBias returns the latest report for every analyzed symbol.
func (s *Server) handleListBias(c *gin.Context) {
	reports := s.runner.Latest().All()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(reports),
		"reports": reports,
	})
}

func (s *Server) handleGetBias(c *gin.Context) {
	symbol := symbolParam(c)
	rep, ok := s.runner.Latest().Get(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis for " + symbol})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// handleAnalyze runs a fresh analysis for one symbol.
func (s *Server) handleAnalyze(c *gin.Context) {
	symbol := symbolParam(c)
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	rep, err := s.runner.AnalyzeSymbol(c.Request.Context(), symbol)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, model.ErrEmptySeries) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("analyze request failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleGetWeights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"weights":    s.weights.Snapshot(),
		"updated_at": s.weights.UpdatedAt(),
	})
}

func (s *Server) handleRetrain(c *gin.Context) {
	out, err := s.retrainer.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleVerify(c *gin.Context) {
	sum, err := s.verifier.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checked":  sum.Checked,
		"correct":  sum.Correct,
		"failed":   sum.Failed,
		"accuracy": sum.Accuracy(),
	})
}
