package server

import (
	"errors"
	"strconv"
	"strings"

	"mosaic/internal/middleware"
	"mosaic/internal/models"

	"github.com/gofiber/fiber/v2"
)

type outputFormat int

const (
	formatJSON outputFormat = iota
	formatHTML
)

const formatLocal = "format"

// NegotiateFormat resolves the output format once per request from Accept.
func NegotiateFormat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(formatLocal, negotiateFormat(c.Get(fiber.HeaderAccept)))
		return c.Next()
	}
}

// negotiateFormat picks HTML only when text/html is strictly preferred over
// application/json. Wildcards count for both; a tie means JSON.
func negotiateFormat(accept string) outputFormat {
	if strings.TrimSpace(accept) == "" {
		return formatJSON
	}

	htmlQ, jsonQ := -1.0, -1.0
	htmlExact, jsonExact := false, false
	for _, part := range strings.Split(accept, ",") {
		mediaType, q := parseAcceptPart(part)
		switch mediaType {
		case "text/html":
			htmlQ, htmlExact = q, true
		case "application/json":
			jsonQ, jsonExact = q, true
		case "text/*":
			if !htmlExact {
				htmlQ = max(htmlQ, q)
			}
		case "application/*":
			if !jsonExact {
				jsonQ = max(jsonQ, q)
			}
		case "*/*":
			if !htmlExact {
				htmlQ = max(htmlQ, q)
			}
			if !jsonExact {
				jsonQ = max(jsonQ, q)
			}
		}
	}

	if htmlQ > 0 && htmlQ > jsonQ {
		return formatHTML
	}
	return formatJSON
}

func parseAcceptPart(part string) (string, float64) {
	fields := strings.Split(part, ";")
	mediaType := strings.ToLower(strings.TrimSpace(fields[0]))
	q := 1.0
	for _, param := range fields[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.TrimSpace(key) != "q" {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			q = parsed
		}
	}
	return mediaType, q
}

func formatOf(c *fiber.Ctx) outputFormat {
	if f, ok := c.Locals(formatLocal).(outputFormat); ok {
		return f
	}
	return negotiateFormat(c.Get(fiber.HeaderAccept))
}

// response is what a handler produces. It carries both renditions; send
// picks the one matching the negotiated format.
type response struct {
	status int
	// body is the JSON rendition.
	body any
	// view and data are the HTML rendition. An empty view with a redirect
	// target means "redirect"; with neither, HTML clients get the JSON body.
	view     string
	data     fiber.Map
	redirect string
}

func (s *Server) send(c *fiber.Ctx, r response) error {
	status := r.status
	if status == 0 {
		status = fiber.StatusOK
	}

	if formatOf(c) == formatHTML {
		switch {
		case r.redirect != "":
			return c.Redirect(r.redirect, fiber.StatusFound)
		case r.view != "":
			data := fiber.Map{}
			for k, v := range r.data {
				data[k] = v
			}
			if user, ok := middleware.CurrentUser(c); ok {
				data["CurrentUser"] = user
			}
			return c.Status(status).Render(r.view, data)
		}
	}

	if r.body == nil {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(r.body)
}

// fail is the single error boundary for handlers.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status, message, code := describeError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	if formatOf(c) == formatHTML {
		if status == fiber.StatusUnauthorized {
			return c.Redirect("/login", fiber.StatusFound)
		}
		return c.Status(status).Render("error", fiber.Map{
			"Status":  status,
			"Message": message,
		})
	}

	return c.Status(status).JSON(models.ErrorResponse{Message: message, Code: code})
}

// describeError maps err to status, public message and code. Causes of
// internal errors are never exposed.
func describeError(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, "Internal server error", models.CodeInternal
		}
		return fe.Code, fe.Message, ""
	}

	var appErr *models.AppError
	if status := models.StatusFor(err); status != fiber.StatusInternalServerError && errors.As(err, &appErr) {
		return status, appErr.Message, appErr.Code
	}
	return fiber.StatusInternalServerError, "Internal server error", models.CodeInternal
}

// handleError is the Fiber error handler for errors returned past the
// handlers, such as unknown routes or oversized bodies.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	return s.fail(c, err)
}
