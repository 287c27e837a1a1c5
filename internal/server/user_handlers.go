package server

import (
	"net/url"

	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// profileUpdateRequest carries a partial profile update; absent fields are left unchanged.
type profileUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

func (r profileUpdateRequest) toInput(userID uint) service.UpdateProfileInput {
	return service.UpdateProfileInput{
		UserID:   userID,
		Email:    r.Email,
		Password: r.Password,
		Username: r.Username,
		Bio:      r.Bio,
	}
}

// GetMe handles GET /api/user/me
// @Summary Current user's profile
// @Tags user
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PATCH /api/user/me
// @Summary Update the current user's profile
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,username=string,bio=string} true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/me [patch]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), req.toInput(currentUserID(c)))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(user)
}

// SearchProfiles handles GET /api/user/profiles?username=&email=&bio=
// Filters are case-insensitive substrings and combine with AND.
// @Summary Search profiles
// @Tags user
// @Produce json
// @Param username query string false "Case-insensitive substring"
// @Param email query string false "Case-insensitive substring"
// @Param bio query string false "Case-insensitive substring"
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/profiles [get]
func (s *Server) SearchProfiles(c *fiber.Ctx) error {
	users, err := s.userService.SearchUsers(c.UserContext(), repository.UserFilter{
		Username: c.Query("username"),
		Email:    c.Query("email"),
		Bio:      c.Query("bio"),
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(users)
}

// GetProfile handles GET /api/user/profiles/:email
// @Summary Get a profile
// @Tags user
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/profiles/{email} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByEmail(c.UserContext(), emailParam(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PATCH /api/user/profiles/:email. Only the owner may change a profile.
// @Summary Update own profile
// @Tags user
// @Accept json
// @Produce json
// @Param email path string true "Email"
// @Param request body object{email=string,password=string,username=string,bio=string} true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/profiles/{email} [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.UpdateProfileByEmail(c.UserContext(), currentUserID(c), emailParam(c), req.toInput(0))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteProfile handles DELETE /api/user/profiles/:email
// @Summary Delete own profile
// @Tags user
// @Produce json
// @Param email path string true "Email"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/profiles/{email} [delete]
func (s *Server) DeleteProfile(c *fiber.Ctx) error {
	if err := s.userService.DeleteUserByEmail(c.UserContext(), currentUserID(c), emailParam(c)); err != nil {
		return s.writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// emailParam returns the :email route segment, percent-decoded.
func emailParam(c *fiber.Ctx) string {
	raw := c.Params("email")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
