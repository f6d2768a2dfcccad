package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/requestdata"
	"github.com/jlcedu/rechtszaal-backend/internal/sse"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{log: log.With("handler", "SSEHandler"), hub: hub}
}

// Stream opens the event stream and subscribes it to the caller's own
// channel. The connection stays open until the client goes away.
func (sh *SSEHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	client := sh.hub.NewSSEClient(rd.UserID)
	sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))
	defer sh.hub.CloseClient(client)

	sh.hub.ServeHTTP(c.Writer, c.Request, client)
}

// Subscribe adds an extra channel to an open stream. Students can only
// join their own channel; teachers and admins may watch any student.
func (sh *SSEHandler) Subscribe(c *gin.Context) {
	client, channel, ok := sh.resolveSubscription(c)
	if !ok {
		return
	}
	sh.hub.AddChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (sh *SSEHandler) Unsubscribe(c *gin.Context) {
	client, channel, ok := sh.resolveSubscription(c)
	if !ok {
		return
	}
	sh.hub.RemoveChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (sh *SSEHandler) resolveSubscription(c *gin.Context) (*sse.SSEClient, string, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return nil, "", false
	}
	var req struct {
		ClientID string `json:"client_id"`
		Channel  string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, "", false
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return nil, "", false
	}
	client, ok := sh.hub.GetClient(clientID)
	if !ok || client.UserID != rd.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown client"})
		return nil, "", false
	}
	if req.Channel != sse.UserChannel(rd.UserID) &&
		rd.Role != types.RoleTeacher && rd.Role != types.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden channel"})
		return nil, "", false
	}
	return client, req.Channel, true
}
