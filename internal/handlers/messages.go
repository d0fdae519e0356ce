package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// MessageHandler serves thread message endpoints.
type MessageHandler struct {
	threads  *services.ThreadService
	pipeline *services.MessagePipeline
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(threads *services.ThreadService, pipeline *services.MessagePipeline) *MessageHandler {
	return &MessageHandler{threads: threads, pipeline: pipeline}
}

// ListMessages pages messages newest first. ?before takes a message id.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	msgs, err := h.pipeline.List(requestContext(c), thread, participant, c.Query("before"))
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ShowMessage returns one message with its reply resolved, or reply_to
// null when the reply target does not exist.
func (h *MessageHandler) ShowMessage(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	msg, err := h.pipeline.Get(requestContext(c), thread, participant, c.Param("message_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// PostMessage stores a message and hands it to the brokers.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.pipeline.Send(requestContext(c), thread, participant, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// DeleteMessage archives a message for everyone.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.pipeline.Delete(requestContext(c), thread, participant, c.Param("message_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead moves the caller's read marker to now.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.pipeline.MarkRead(requestContext(c), thread, participant); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
