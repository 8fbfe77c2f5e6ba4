package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"auth-api/internal/domain"
	"auth-api/internal/service"
)

// Handler wires HTTP routes to the auth service.
type Handler struct {
	auth       service.AuthService
	requireTLS bool
}

func NewHandler(auth service.AuthService, requireTLS bool) *Handler {
	return &Handler{
		auth:       auth,
		requireTLS: requireTLS,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(securityHeaders())
	if h.requireTLS {
		router.Use(requireTLS())
	}

	router.GET("/health", h.health)
	router.POST("/auth/login", h.login)

	users := router.Group("/users")
	users.Use(h.authenticate())
	{
		users.GET("/me", h.currentUser)
		users.POST("/create", h.createUser)
		users.POST("/logout", h.logout)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type userResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Validation failed"))
		return
	}

	token, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, errorBody("Invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("Internal server error"))
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Status:  "success",
		Message: "Authentication successful",
		Token:   token,
	})
}

func (h *Handler) currentUser(c *gin.Context) {
	ident := identityFrom(c)

	user, err := h.auth.CurrentUser(c.Request.Context(), ident.Username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, errorBody("Unauthorized"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("Internal server error"))
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(bindingMessage(err)))
		return
	}
	if msg, ok := checkPasswordPolicy(req.Password); !ok {
		c.JSON(http.StatusBadRequest, errorBody(msg))
		return
	}

	ident := identityFrom(c)
	user, err := h.auth.RegisterUser(c.Request.Context(), ident, req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, errorBody("Access denied"))
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, errorBody("Username already exists"))
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, errorBody("Email already exists"))
		default:
			c.JSON(http.StatusInternalServerError, errorBody("Internal server error"))
		}
		return
	}

	c.JSON(http.StatusCreated, userToResponse(user))
}

func (h *Handler) logout(c *gin.Context) {
	ident := identityFrom(c)

	if err := h.auth.LogoutAll(c.Request.Context(), ident.Username); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("Logout failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

func userToResponse(user *domain.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    []string{user.Role},
	}
}

func errorBody(message string) gin.H {
	return gin.H{"status": "error", "message": message}
}

// bindingMessage turns a binding failure into a field-level message without
// echoing internal validator detail.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation failed"
	}

	switch field := verrs[0].Field(); field {
	case "Username":
		return "Username must be between 3 and 50 characters"
	case "Email":
		return "Email must be valid"
	case "Password":
		return "Password is required"
	case "Role":
		return "Role is required"
	default:
		return field + " is invalid"
	}
}
