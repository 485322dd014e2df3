package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/database/users"
)

// UsersController handles account operations.
type UsersController struct {
	store   UserStore
	limiter *auth.LoginThrottle
}

// NewUsersController creates a new UsersController. limiter may be nil.
func NewUsersController(store UserStore, limiter *auth.LoginThrottle) *UsersController {
	return &UsersController{store: store, limiter: limiter}
}

// CreateUserRequest is the request body for creating an account.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the request body for checking credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUser registers an account.
// POST /api/users
func (uc *UsersController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	user, err := uc.store.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondStoreError(c, err, "create user")
		return
	}
	respondCreated(c, user.Public())
}

// GetUser returns an account without its credentials.
// GET /api/users/:username
func (uc *UsersController) GetUser(c *gin.Context) {
	user, err := uc.store.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondStoreError(c, err, "get user")
		return
	}
	if user == nil {
		respondNotFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// Authenticate checks a username and password.
// POST /api/users/authenticate
func (uc *UsersController) Authenticate(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ip, account := c.ClientIP(), users.NormalizeUsername(req.Username)
	if uc.limiter != nil {
		if allowed, retryAfter := uc.limiter.Allow(ip, account); !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many login attempts", Code: "rate_limited"})
			return
		}
	}

	user, err := uc.store.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, users.ErrInvalidLogin) {
		if uc.limiter != nil {
			uc.limiter.RecordFailure(ip, account)
		}
		respondError(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		respondStoreError(c, err, "authenticate")
		return
	}
	if uc.limiter != nil {
		uc.limiter.RecordSuccess(ip, account)
	}
	c.JSON(http.StatusOK, user.Public())
}

// DeleteUser removes an account.
// DELETE /api/users/:username
func (uc *UsersController) DeleteUser(c *gin.Context) {
	found, err := uc.store.DeleteUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondStoreError(c, err, "delete user")
		return
	}
	if !found {
		respondNotFound(c, "user")
		return
	}
	respondSuccess(c, "user deleted")
}
