package server

import (
	"mosaic/internal/middleware"
	"mosaic/internal/models"
	"mosaic/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /register
// @Summary Register a user
// @Description Creates an account and starts a session. HTML clients are redirected to the feed.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Registration"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	s.setSessionCookie(c, result.Token)
	return s.send(c, response{
		status:   fiber.StatusCreated,
		body:     result,
		redirect: "/feed",
	})
}

// Login handles POST /login
// @Summary Log in
// @Description Verifies credentials by username, or by email as fallback, and starts a session.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username   string `json:"username" form:"username"`
		Email      string `json:"email" form:"email"`
		Identifier string `json:"identifier" form:"identifier"`
		Password   string `json:"password" form:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"))
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Identifier
	}
	if identifier == "" {
		identifier = req.Email
	}

	result, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	s.setSessionCookie(c, result.Token)
	return s.send(c, response{body: result, redirect: "/feed"})
}

// Logout handles GET /logout
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /logout [get]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.clearSessionCookie(c)
	return s.send(c, response{
		body:     fiber.Map{"message": "Logged out"},
		redirect: "/login",
	})
}

// Index sends visitors to the feed when signed in, otherwise to the login page.
func (s *Server) Index(c *fiber.Ctx) error {
	if _, ok := middleware.CurrentUser(c); ok {
		return c.Redirect("/feed", fiber.StatusFound)
	}
	return c.Redirect("/login", fiber.StatusFound)
}

// LoginPage renders the login form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.authPage(c, "login", "Log in")
}

// RegisterPage renders the registration form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return s.authPage(c, "register", "Register")
}

// authPage skips the form for visitors that already carry a session cookie.
func (s *Server) authPage(c *fiber.Ctx, view, title string) error {
	if c.Cookies(middleware.SessionCookie) != "" {
		return c.Redirect("/feed", fiber.StatusFound)
	}
	return c.Render(view, fiber.Map{"Title": title})
}
