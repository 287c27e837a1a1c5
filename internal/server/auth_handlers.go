package server

import (
	"strings"

	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// CreateUser handles POST /api/user/create
// @Summary Register a user
// @Description Create an account. Email is the login identifier.
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,username=string,bio=string} true "New account"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /user/create [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
		Bio      string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.CreateUser(c.UserContext(), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// ObtainToken handles POST /api/user/token
// @Summary Obtain a token pair
// @Description Exchange credentials for an access and a refresh token
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} models.ErrorResponse
// @Router /user/token [post]
func (s *Server) ObtainToken(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	pair, err := s.tokenService.IssuePair(user.ID)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(pair)
}

// RefreshToken handles POST /api/user/token/refresh
// @Summary Refresh the access token
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} object{access=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /user/token/refresh [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Refresh == "" {
		return badRequest(c, "refresh is required")
	}

	access, err := s.tokenService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

// Logout handles POST /api/user/logout by revoking the caller's refresh token.
// @Summary Log out
// @Tags user
// @Accept json
// @Param request body object{refresh=string} true "Refresh token to revoke"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Refresh == "" {
		return badRequest(c, "refresh is required")
	}

	if err := s.tokenService.Revoke(c.UserContext(), currentUserID(c), req.Refresh); err != nil {
		return s.writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
