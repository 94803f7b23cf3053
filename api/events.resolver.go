package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// streamEvents pushes a payload-less SSE event whenever the persisted
// account changes, so every open tab re-reads instead of trusting its
// in-memory copy.
func (m ApiHandler) streamEvents(c *gin.Context) {
	notifications, unsubscribe := m.Bus.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("account", "connected")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case _, ok := <-notifications:
			if !ok {
				return false
			}
			c.SSEvent("account", "updated")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
