package server

import (
	"embed"
	"io/fs"
	"net/http"

	"mosaic/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed views
var viewsFS embed.FS

func newViewEngine() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	// card bundles a post with the viewing user for the post partial.
	engine.AddFunc("card", func(post *models.Post, viewer *models.User) fiber.Map {
		return fiber.Map{"Post": post, "Viewer": viewer}
	})
	return engine
}
