package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/service"
)

// SubscriberHandler answers read-through subscriber lookups used by the
// operations dashboard to verify migration results.
type SubscriberHandler struct {
	source service.SourceStore
	dest   service.DestinationStore
}

// NewSubscriberHandler creates a new subscriber handler.
func NewSubscriberHandler(source service.SourceStore, dest service.DestinationStore) *SubscriberHandler {
	return &SubscriberHandler{source: source, dest: dest}
}

// GetSubscriber handles GET /api/v1/subscribers/:key. The destination store
// is consulted first; a miss falls through to the legacy source so operators
// can see which system currently holds the record.
func (h *SubscriberHandler) GetSubscriber(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	if sub, err := h.dest.Lookup(ctx, key); err == nil {
		c.JSON(http.StatusOK, gin.H{"system": "destination", "subscriber": sub})
		return
	} else if !errors.Is(err, domain.ErrSubscriberNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.source.FindByIdentifier(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscriber not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"system": "source", "subscriber": sub})
}
