package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/currents-api/internal/adapter/store"
	"go.ngs.io/currents-api/internal/usecase"
)

// Handler handles HTTP requests for gap-filling runs.
type Handler struct {
	deps  usecase.StepDeps
	saver store.DatasetSaver
}

// NewHandler creates a new HTTP handler. saver may be nil, in which case
// requests asking for an output path are rejected.
func NewHandler(deps usecase.StepDeps, saver store.DatasetSaver) *Handler {
	return &Handler{
		deps:  deps,
		saver: saver,
	}
}

// GapfillRequest is the body of POST /v1/gapfill.
type GapfillRequest struct {
	// Input locates the target dataset (local path or s3:// URL).
	Input string `json:"input"`
	// Output is the local path for the filled dataset. Optional: when
	// empty the run only reports statistics.
	Output string `json:"output"`
	// Steps is the ordered pipeline to apply.
	Steps []usecase.StepConfig `json:"steps"`
}

// GapfillResponse is the result of a pipeline run.
type GapfillResponse struct {
	Input   string               `json:"input"`
	Output  string               `json:"output,omitempty"`
	Reports []usecase.StepReport `json:"reports"`
}

// RunGapfill handles POST /v1/gapfill.
func (h *Handler) RunGapfill(c *gin.Context) {
	var req GapfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if req.Input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input parameter is required"})
		return
	}
	if len(req.Steps) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one step is required"})
		return
	}
	if req.Output != "" && h.saver == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataset saving is not configured"})
		return
	}

	gapfiller, err := usecase.NewGapfillerFromConfig(req.Steps, h.deps)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := h.deps.Loader.Load(c.Request.Context(), req.Input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to load target dataset: %v", err)})
		return
	}

	filled, reports, err := gapfiller.Execute(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Output != "" {
		if err := h.saver.Save(c.Request.Context(), req.Output, filled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save output dataset: %v", err)})
			return
		}
	}

	c.JSON(http.StatusOK, GapfillResponse{
		Input:   req.Input,
		Output:  req.Output,
		Reports: reports,
	})
}

// GetSteps handles GET /v1/steps.
func (h *Handler) GetSteps(c *gin.Context) {
	kinds := usecase.StepKinds()
	c.JSON(http.StatusOK, gin.H{
		"steps": kinds,
		"count": len(kinds),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
