package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/auth"
	"github.com/relaychat/moderation/internal/models"
	"github.com/relaychat/moderation/internal/repository"
)

type AuthHandler struct {
	accountRepo *repository.AccountRepository
	jwtService  *auth.JWTService
}

func NewAuthHandler(accountRepo *repository.AccountRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		accountRepo: accountRepo,
		jwtService:  jwtService,
	}
}

// Login handles admin login. Account provisioning is not this service's
// concern; accounts come from the main application's store.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// Get account by email
	account, err := h.accountRepo.GetByEmail(req.Email)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if account.Deactivated {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Check password
	if err := auth.CheckPassword(account.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Generate token
	token, err := h.jwtService.GenerateToken(account.ID, account.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:   token,
		Account: *account,
	})
}

// GetMe returns the current account
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	account, err := h.accountRepo.GetByID(uid)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Account not found")
		return
	}

	c.JSON(http.StatusOK, account)
}
