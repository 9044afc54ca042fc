package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/admin"
	"github.com/relaychat/moderation/internal/models"
)

type AdminHandler struct {
	dispatcher *admin.Dispatcher
}

func NewAdminHandler(dispatcher *admin.Dispatcher) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher}
}

// ExecuteCommand runs one privileged admin command. The actor comes from the
// session; the supplied secret in the body is re-verified by the gate on
// every call. The response is always a structured result, never a raw fault.
func (h *AdminHandler) ExecuteCommand(c *gin.Context) {
	var cmd models.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	cmd.ActorID = userID.(uuid.UUID)

	result := h.dispatcher.Dispatch(cmd)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}
