package levels

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin/internal/fillregistry"
	"smartbin/pkg/ginx"
)

// Events 以 SSE 转发实时推送，事件名为频道名
// GET /api/events
func (h *LevelsHandler) Events(c *gin.Context) {
	if h.events == nil {
		ginx.Error(c, http.StatusServiceUnavailable, "event stream disabled")
		return
	}
	ctx := c.Request.Context()
	events, err := h.events.Listen(ctx, fillregistry.Channels...)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Debugf(ctx, "[Registry] Event stream opened by %s", c.ClientIP())
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(ev.Channel, ev.Payload)
			c.Writer.Flush()
		}
	}
}
