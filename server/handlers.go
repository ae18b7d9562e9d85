package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"seqbench/benchmark"
	"seqbench/storage"
)

// BenchmarkAccepted is returned when a run has been scheduled.
type BenchmarkAccepted struct {
	RunID  string           `json:"run_id"`
	Status benchmark.Status `json:"status"`
	Key    string           `json:"key"`
}

// RunStatus describes a run still tracked by the pool.
type RunStatus struct {
	RunID       string           `json:"run_id"`
	Status      benchmark.Status `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Error       string           `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, benchmark.ErrUnsupportedVariant),
		errors.Is(err, benchmark.ErrUnsupportedPosition),
		errors.Is(err, benchmark.ErrEmptyContainer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, benchmark.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, benchmark.ErrPoolSaturated),
		errors.Is(err, benchmark.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, benchmark.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, benchmark.ErrUnknownRun):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleSubmitBenchmark accepts a configuration and schedules its run.
// The response only confirms scheduling; results go to storage.
func HandleSubmitBenchmark(o *benchmark.Orchestrator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg benchmark.Configuration
		if err := c.ShouldBindJSON(&cfg); err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadRequest
			}
			logger.Debug("rejected benchmark request body", slog.String("error", err.Error()))
			abortWithError(c, status, err)
			return
		}

		h, err := o.Submit(cfg)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusTooManyRequests {
				c.Header("Retry-After", "1")
			}
			abortWithError(c, status, err)
			return
		}

		c.Header("Location", "/v1/benchmarks/"+h.ID)
		c.JSON(http.StatusAccepted, BenchmarkAccepted{
			RunID:  h.ID,
			Status: h.Status(),
			Key:    cfg.Key().String(),
		})
	}
}

// HandleGetBenchmark returns the status of a recently submitted run.
func HandleGetBenchmark(o *benchmark.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, err := o.Lookup(c.Param("id"))
		if err != nil {
			abortWithError(c, statusFor(err), err)
			return
		}

		resp := RunStatus{
			RunID:       h.ID,
			Status:      h.Status(),
			SubmittedAt: h.SubmittedAt,
		}
		if resp.Status != benchmark.StatusQueued && resp.Status != benchmark.StatusRunning {
			if err := h.Err(); err != nil {
				resp.Error = err.Error()
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleListExecutions returns the stored records of a configuration key.
func HandleListExecutions(finder storage.Finder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := benchmark.ParseConfigurationKey(c.Param("variant") + ":" + c.Param("position"))
		if err != nil {
			abortWithError(c, http.StatusNotFound, err)
			return
		}

		recs, err := finder.Find(c.Request.Context(), key)
		if err != nil {
			logger.Error("failed to list executions",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
			abortWithError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key.String(), "executions": recs})
	}
}
