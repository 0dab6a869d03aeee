package server

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"mosaic/internal/middleware"
	"mosaic/internal/models"
	"mosaic/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseBody decodes a JSON or form body into dest. An empty body leaves
// dest untouched so services report the missing fields themselves.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(dest)
}

// pageParam reads ?page=N. Missing, unparsable and non-positive values mean 1.
func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// RequireSession rejects requests without a resolved session: HTML clients
// are redirected to /login, JSON clients get 401.
func (s *Server) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := middleware.CurrentUser(c); !ok {
			return s.fail(c, models.NewUnauthorizedError("Authentication required"))
		}
		return c.Next()
	}
}

// currentUser returns the session user. Only valid behind RequireSession.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(service.TokenLifetime),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// readUpload returns the bytes of the multipart file field. A missing or
// empty file yields nil without error; services decide whether that is fatal.
func (s *Server) readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	// Not multipart, malformed or no such field: all mean "no file".
	header, err := c.FormFile(field)
	if err != nil || header.Size == 0 {
		return nil, nil
	}

	limit := s.config.MaxUploadBytes()
	if header.Size > limit {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds the %d MB upload limit", s.config.MediaMaxUploadSizeMB))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file %s: %w", field, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", field, err)
	}
	if int64(len(data)) > limit {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds the %d MB upload limit", s.config.MediaMaxUploadSizeMB))
	}
	return data, nil
}

// backTo returns the same-origin path of the Referer, or fallback.
func backTo(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Hostname()) || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
