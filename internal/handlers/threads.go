package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/services"
)

// ThreadHandler serves thread level endpoints.
type ThreadHandler struct {
	threads  *services.ThreadService
	presence *services.PresenceService
}

// NewThreadHandler builds a ThreadHandler. presence may be nil.
func NewThreadHandler(threads *services.ThreadService, presence *services.PresenceService) *ThreadHandler {
	return &ThreadHandler{threads: threads, presence: presence}
}

// loadThread resolves :thread_id and the caller's membership. Membership
// checks are left to the services so non-members get 403, not 404.
func loadThread(c *gin.Context, threads *services.ThreadService) (models.Thread, *models.Participant, bool) {
	provider, ok := currentProvider(c)
	if !ok {
		return models.Thread{}, nil, false
	}
	thread, participant, err := threads.Load(requestContext(c), c.Param("thread_id"), provider)
	if err != nil {
		respondError(c, err)
		return models.Thread{}, nil, false
	}
	return thread, participant, true
}

// ListThreads returns the caller's threads by last activity. ?before takes
// an RFC3339 timestamp from the previous page.
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return
		}
		before = &parsed
	}

	threads, err := h.threads.List(requestContext(c), provider, before)
	if err != nil {
		respondError(c, err)
		return
	}
	if threads == nil {
		threads = []models.Thread{}
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// ShowThread returns one thread with the caller's membership.
func (h *ThreadHandler) ShowThread(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	thread, participant, err := h.threads.Get(requestContext(c), c.Param("thread_id"), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread, "participant": participant})
}

type messageRequest struct {
	Message     string             `json:"message"`
	Type        models.MessageType `json:"type"`
	ReplyToID   *string            `json:"reply_to_id"`
	TemporaryID string             `json:"temporary_id"`
}

func (r messageRequest) input() services.SendMessageInput {
	return services.SendMessageInput{
		Type:        r.Type,
		Body:        r.Message,
		ReplyToID:   r.ReplyToID,
		TemporaryID: r.TemporaryID,
	}
}

// CreatePrivate opens, or returns, the private thread with a recipient.
func (h *ThreadHandler) CreatePrivate(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	var req struct {
		RecipientAlias string `json:"recipient_alias"`
		RecipientID    string `json:"recipient_id"`
		messageRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var first *services.SendMessageInput
	if req.Message != "" {
		in := req.input()
		first = &in
	}
	recipient := models.ProviderRef{Alias: req.RecipientAlias, ID: req.RecipientID}
	thread, created, err := h.threads.CreatePrivate(requestContext(c), provider, recipient, first)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"thread": thread, "created": created})
}

// CreateGroup stores a group with the caller as its first admin.
func (h *ThreadHandler) CreateGroup(c *gin.Context) {
	provider, ok := currentProvider(c)
	if !ok {
		return
	}
	var req struct {
		Subject   string               `json:"subject"`
		Providers []models.ProviderRef `json:"providers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, participants, err := h.threads.CreateGroup(requestContext(c), provider, req.Subject, req.Providers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": thread, "participants": participants})
}

// UpdateSettings applies a partial settings change.
func (h *ThreadHandler) UpdateSettings(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	var settings models.ThreadSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.threads.UpdateSettings(requestContext(c), thread, participant, settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": updated})
}

// Lock makes a group read only.
func (h *ThreadHandler) Lock(c *gin.Context) {
	h.setLocked(c, true)
}

// Unlock reverses Lock.
func (h *ThreadHandler) Unlock(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *ThreadHandler) setLocked(c *gin.Context, locked bool) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	updated, err := h.threads.SetLocked(requestContext(c), thread, participant, locked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": updated})
}

// Archive soft deletes the thread.
func (h *ThreadHandler) Archive(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.threads.Archive(requestContext(c), thread, participant); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListParticipants returns members with their online status.
func (h *ThreadHandler) ListParticipants(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	participants, err := h.threads.Participants(requestContext(c), thread, participant)
	if err != nil {
		respondError(c, err)
		return
	}
	if participants == nil {
		participants = []models.Participant{}
	}

	type participantResponse struct {
		models.Participant
		OnlineStatus        models.OnlineStatus `json:"online_status"`
		OnlineStatusVerbose string              `json:"online_status_verbose"`
	}
	resp := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		status := models.StatusOffline
		if h.presence != nil {
			status = h.presence.Status(p.Owner())
		}
		resp = append(resp, participantResponse{Participant: p, OnlineStatus: status, OnlineStatusVerbose: status.String()})
	}
	c.JSON(http.StatusOK, gin.H{"participants": resp})
}

// AddParticipants adds eligible providers to a group. Ineligible
// providers are skipped, so an empty list is still a success.
func (h *ThreadHandler) AddParticipants(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	var req struct {
		Providers []models.ProviderRef `json:"providers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.threads.AddParticipants(requestContext(c), thread, participant, req.Providers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": added})
}

// RemoveParticipant removes another member.
func (h *ThreadHandler) RemoveParticipant(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.threads.RemoveParticipant(requestContext(c), thread, participant, c.Param("participant_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave removes the caller from a group.
func (h *ThreadHandler) Leave(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	if err := h.threads.Leave(requestContext(c), thread, participant); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Promote grants admin rights.
func (h *ThreadHandler) Promote(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	updated, err := h.threads.Promote(requestContext(c), thread, participant, c.Param("participant_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": updated})
}

// Demote revokes admin rights.
func (h *ThreadHandler) Demote(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	updated, err := h.threads.Demote(requestContext(c), thread, participant, c.Param("participant_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": updated})
}

// UpdatePermissions changes a member's overrides.
func (h *ThreadHandler) UpdatePermissions(c *gin.Context) {
	thread, participant, ok := loadThread(c, h.threads)
	if !ok {
		return
	}
	var perms models.ParticipantPermissions
	if err := c.ShouldBindJSON(&perms); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.threads.UpdatePermissions(requestContext(c), thread, participant, c.Param("participant_id"), perms)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": updated})
}
