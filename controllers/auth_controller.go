package controllers

import (
	"errors"
	"net/http"

	"cretan-guru/middleware"
	"cretan-guru/models"
	"cretan-guru/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Auth *services.AuthService
	Cart *CartController
}

// Register godoc
// @Summary Register new user
// @Description Register a new customer account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Register Request"
// @Success 201 {object} models.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid request", Error: err.Error()})
		return
	}

	resp, err := ctrl.Auth.Register(c.Request.Context(), req)
	if errors.Is(err, services.ErrEmailTaken) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Success: false, Message: "Failed to register", Error: err.Error()})
		return
	}

	ctrl.adoptGuestCart(c, resp)
	c.JSON(http.StatusCreated, models.Response{Success: true, Message: "Registration successful", Data: resp})
}

// Login godoc
// @Summary Login
// @Description Sign in; the guest cart held by the session cookie moves to the account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login Request"
// @Success 200 {object} models.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid request", Error: err.Error()})
		return
	}

	resp, err := ctrl.Auth.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Success: false, Message: "Invalid email or password"})
		return
	}

	ctrl.adoptGuestCart(c, resp)
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Login successful", Data: resp})
}

// GetProfile godoc
// @Summary Get profile
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Response
// @Router /auth/profile [get]
func (ctrl *AuthController) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Success: false, Message: "Unauthorized"})
		return
	}

	profile, err := ctrl.Auth.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Success: false, Message: "User not found"})
		return
	}

	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Profile retrieved", Data: profile})
}

func (ctrl *AuthController) adoptGuestCart(c *gin.Context, resp *models.LoginResponse) {
	if ctrl.Cart == nil {
		return
	}
	ctrl.Cart.MergeFor(c, &models.AuthUser{ID: resp.User.ID, Email: resp.User.Email, Role: resp.User.Role})
}
