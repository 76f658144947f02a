package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/infrastructure/monitoring"
	"github.com/boardlab/boardlab/internal/shell"
	"github.com/boardlab/boardlab/internal/target"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // lab daemons sit on trusted networks; CORS is handled upstream
	},
}

// Message is one client frame.
type Message struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// Handler serves one WebSocket endpoint per target: live console bytes out,
// command frames in.
type Handler struct {
	targets *target.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(targets *target.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{targets: targets, metrics: metrics, log: log}
}

// HandleConnection upgrades and serves one client.
func (h *Handler) HandleConnection(c *gin.Context) {
	tgt, err := h.targets.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Gorilla allows one concurrent writer; console chunks and command
	// replies share the connection.
	var writeMu sync.Mutex
	send := func(frame interface{}) error {
		data, err := sonic.Marshal(frame)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	subID, consoleCh, err := tgt.Subscribe()
	if err != nil {
		_ = send(gin.H{"type": "error", "message": err.Error()})
		return
	}
	defer tgt.Unsubscribe(subID)

	_ = send(gin.H{
		"type":   "hello",
		"target": tgt.Name(),
		"status": tgt.Status().String(),
	})

	// Replay the tail so a client joining mid-boot sees recent output.
	if tail := tgt.Tail(); len(tail) > 0 {
		_ = send(gin.H{"type": "console", "data": string(tail)})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range consoleCh {
			if h.metrics != nil {
				h.metrics.RecordWSMessage("out", "console")
			}
			if err := send(gin.H{"type": "console", "data": string(chunk)}); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			_ = send(gin.H{"type": "error", "message": "malformed frame"})
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "run":
			h.handleRun(tgt, msg, send)
		case "ping":
			_ = send(gin.H{"type": "pong"})
		default:
			_ = send(gin.H{"type": "error", "message": "unknown message type"})
		}
	}

	tgt.Unsubscribe(subID)
	<-done
}

func (h *Handler) handleRun(tgt *target.Target, msg Message, send func(interface{}) error) {
	res, err := tgt.Run(msg.Command, shell.RunOptions{
		Timeout: time.Duration(msg.Timeout) * time.Second,
	})
	switch {
	case err != nil:
		_ = send(gin.H{"type": "error", "message": err.Error()})
	case res == nil:
		_ = send(gin.H{"type": "not_ready"})
	default:
		_ = send(gin.H{
			"type":   "result",
			"lines":  res.Lines,
			"status": res.Status,
		})
	}
}
