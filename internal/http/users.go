package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database/users"
)

// UsersController handles account registration and login.
type UsersController struct {
	repo *users.Repository
	cfg  config.Auth
}

func NewUsersController(repo *users.Repository, cfg config.Auth) *UsersController {
	return &UsersController{
		repo: repo,
		cfg:  cfg,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (controller *UsersController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username, email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password, controller.cfg.BcryptCost)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if existing, err := controller.repo.GetUserByUsername(req.Username); err == nil && existing != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "username already taken"})
		return
	}

	user, err := controller.repo.CreateUser(req.Username, req.Email, hash)
	if err != nil {
		respondInternalError(c, err, "create user")
		return
	}

	c.IndentedJSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *UsersController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	user, err := controller.repo.GetUserByUsername(req.Username)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	if err := auth.CheckPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(controller.cfg.JWTSecret, user.ID, user.Username, controller.cfg.TokenExpiry)
	if err != nil {
		respondInternalError(c, err, "generate token")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"token": token, "user": user})
}
