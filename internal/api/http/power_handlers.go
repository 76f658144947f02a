package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PowerState reads the target's power feed.
func (h *Handlers) PowerState(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	on, err := tgt.Power().Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"on": on})
}

// PowerSwitch performs on, off, or cycle on the target's power feed.
func (h *Handlers) PowerSwitch(c *gin.Context) {
	tgt, ok := h.lookup(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	op := c.Param("op")

	var err error
	switch op {
	case "on":
		err = tgt.Power().On(ctx)
	case "off":
		err = tgt.Power().Off(ctx)
	case "cycle":
		err = tgt.Power().Cycle(ctx)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown power op " + op})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.RecordPowerSwitch(tgt.Name(), op)
	}
	c.JSON(http.StatusOK, gin.H{"op": op})
}
