// Package http exposes the lab over a REST API: target inventory, shell
// command execution, boot strategy transitions, power control, console
// captures, scripts, and statistics.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/infrastructure/monitoring"
	"github.com/boardlab/boardlab/internal/script"
	"github.com/boardlab/boardlab/internal/shell"
	"github.com/boardlab/boardlab/internal/target"
)

// Handlers bundles the API dependencies.
type Handlers struct {
	targets *target.Manager
	scripts *script.Runner
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(targets *target.Manager, scripts *script.Runner, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{targets: targets, scripts: scripts, metrics: metrics, log: log}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/targets", h.ListTargets)
	r.GET("/targets/:name", h.GetTarget)
	r.POST("/targets/:name/activate", h.Activate)
	r.POST("/targets/:name/deactivate", h.Deactivate)
	r.POST("/targets/:name/transition", h.Transition)
	r.POST("/targets/:name/run", h.Run)
	r.POST("/targets/:name/script", h.Script)
	r.GET("/targets/:name/stats", h.Stats)
	r.GET("/targets/:name/captures", h.ListCaptures)
	r.GET("/targets/:name/captures/archive", h.ArchiveCaptures)
	r.GET("/targets/:name/captures/:file", h.DownloadCapture)
	r.GET("/targets/:name/power", h.PowerState)
	r.POST("/targets/:name/power/:op", h.PowerSwitch)
}

// Health reports daemon liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"targets": len(h.targets.Names()),
	})
}

// ListTargets returns the inventory with per-target readiness.
func (h *Handlers) ListTargets(c *gin.Context) {
	names := h.targets.Names()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		tgt, err := h.targets.Get(name)
		if err != nil {
			continue
		}
		out = append(out, gin.H{
			"name":   name,
			"status": tgt.Status().String(),
			"state":  tgt.StrategyState(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"targets": out})
}

// GetTarget returns one target's status and statistics.
func (h *Handlers) GetTarget(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":   tgt.Name(),
		"status": tgt.Status().String(),
		"state":  tgt.StrategyState(),
		"stats":  tgt.Stats(),
	})
}

// Activate synchronizes the target shell.
func (h *Handlers) Activate(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := tgt.Activate(); err != nil {
		h.shellError(c, tgt.Name(), "activate", err)
		return
	}
	h.updateReadyGauge()
	c.JSON(http.StatusOK, gin.H{"status": tgt.Status().String()})
}

// Deactivate resets the target shell readiness.
func (h *Handlers) Deactivate(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	tgt.Deactivate()
	h.updateReadyGauge()
	c.JSON(http.StatusOK, gin.H{"status": tgt.Status().String()})
}

// TransitionRequest names the desired strategy state.
type TransitionRequest struct {
	State string `json:"state" binding:"required"`
}

// Transition drives the boot strategy.
func (h *Handlers) Transition(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := tgt.Transition(c.Request.Context(), req.State); err != nil {
		h.shellError(c, tgt.Name(), "transition", err)
		return
	}
	h.updateReadyGauge()
	c.JSON(http.StatusOK, gin.H{"state": tgt.StrategyState()})
}

// RunRequest is one shell command submission.
type RunRequest struct {
	Command        string `json:"command" binding:"required"`
	TimeoutSeconds int    `json:"timeout"`
	Codec          string `json:"codec"`
	DecodeErrors   string `json:"decode_errors"`
}

// Run executes one command on the target shell.
func (h *Handlers) Run(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := tgt.Run(req.Command, shell.RunOptions{
		Timeout:      time.Duration(req.TimeoutSeconds) * time.Second,
		Codec:        req.Codec,
		DecodeErrors: req.DecodeErrors,
	})
	if err != nil {
		h.shellError(c, tgt.Name(), "run", err)
		return
	}
	if res == nil {
		// The driver's not-ready signal; the HTTP surface makes it explicit.
		c.JSON(http.StatusConflict, gin.H{"error": "target not ready", "ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lines":  res.Lines,
		"aux":    res.Aux,
		"status": res.Status,
	})
}

// ScriptRequest is one script submission.
type ScriptRequest struct {
	Source string `json:"source" binding:"required"`
}

// Script executes a JavaScript sequence against the target shell.
func (h *Handlers) Script(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	res, err := h.scripts.Execute(c.Request.Context(), req.Source, tgt)
	if h.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.RecordScript(status, time.Since(start))
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"result": res,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stats returns the target's command statistics.
func (h *Handlers) Stats(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tgt.Stats())
}

// lookup resolves the :name parameter, answering 404 itself.
func (h *Handlers) lookup(c *gin.Context) (*target.Target, bool) {
	tgt, err := h.targets.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return tgt, true
}

// shellError maps driver failures onto HTTP statuses: timeouts become 504,
// transport faults 502, anything else 500.
func (h *Handlers) shellError(c *gin.Context, targetName, op string, err error) {
	h.log.Error("shell operation failed",
		zap.String("target", targetName),
		zap.String("op", op),
		zap.Error(err),
	)

	var te *console.TimeoutError
	var tre *console.TransportError
	switch {
	case errors.As(err, &te):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &tre):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handlers) updateReadyGauge() {
	if h.metrics != nil {
		h.metrics.SetTargetsReady(h.targets.ReadyCount())
	}
}
