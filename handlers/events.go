package handlers

import (
	"net/http"
	"time"

	"papum-backend/realtime"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/houses/:id/events
//
// Streams server-sent events telling the client to refetch. A ping is sent
// every keep-alive interval so proxies keep the connection open.
func (h *Handler) StreamEvents(c *gin.Context) {
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}
	if h.notifier == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Live updates are not available")
		return
	}

	ctx := c.Request.Context()
	events, err := h.notifier.Subscribe(ctx, house.ID)
	if err != nil {
		h.log.Error("❌ Failed to subscribe to house events", "house_id", house.ID, "error", err)
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Live updates are not available")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("ready", realtime.NewEvent(house.ID, "ready"))
	c.Writer.Flush()

	log := h.log.With("house_id", house.ID, "user_id", user.ID)
	log.Debug("Events stream opened")
	defer log.Debug("Events stream closed")

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(e.Kind, e)
			c.Writer.Flush()
		case t := <-ping.C:
			c.SSEvent("ping", gin.H{"at": t.UTC()})
			c.Writer.Flush()
		}
	}
}
