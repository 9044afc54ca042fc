package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/cache"
	"github.com/relaychat/moderation/internal/models"
	"github.com/relaychat/moderation/internal/repository"
)

// ModerationHandler serves the read paths presentation collaborators use:
// the ban badge next to a profile or channel, and the audit history. These
// never go through the privileged action gate.
type ModerationHandler struct {
	banRepo *repository.BanRepository
	redis   *cache.RedisClient
}

func NewModerationHandler(banRepo *repository.BanRepository, redis *cache.RedisClient) *ModerationHandler {
	return &ModerationHandler{banRepo: banRepo, redis: redis}
}

func subjectFromPath(c *gin.Context) (models.Subject, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid subject id")
		return models.Subject{}, false
	}

	subject := models.Subject{Type: models.SubjectType(c.Param("subject_type")), ID: id}
	if err := subject.Validate(); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid subject type")
		return models.Subject{}, false
	}
	return subject, true
}

// GetActiveBan returns the ban currently in force for a subject, or
// {banned:false}. Served from the badge cache when possible; a cached record
// past its end is never returned, the store resolves it instead.
func (h *ModerationHandler) GetActiveBan(c *gin.Context) {
	subject, ok := subjectFromPath(c)
	if !ok {
		return
	}

	if h.redis != nil {
		if rec, hit := h.redis.GetBanBadge(subject); hit {
			h.respondBadge(c, rec)
			return
		}
	}

	rec, err := h.banRepo.GetActiveBan(subject)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "failed to load ban state")
		return
	}

	if h.redis != nil {
		_ = h.redis.SetBanBadge(subject, rec)
	}
	h.respondBadge(c, rec)
}

func (h *ModerationHandler) respondBadge(c *gin.Context, rec *models.BanRecord) {
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"banned": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"banned":     true,
		"reason":     rec.Reason,
		"started_at": rec.StartAt,
		"end_at":     rec.EndAt,
	})
}

// ListAudit returns a subject's ban history, newest first.
func (h *ModerationHandler) ListAudit(c *gin.Context) {
	subject, ok := subjectFromPath(c)
	if !ok {
		return
	}

	entries, err := h.banRepo.ListAuditEntries(subject)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "failed to load audit history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": entries})
}
