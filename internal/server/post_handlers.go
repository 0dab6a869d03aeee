package server

import (
	"mosaic/internal/models"
	"mosaic/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /post
// @Summary Create a post
// @Description Multipart upload with a required media file (image or video) and an optional caption.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param media formData file true "Image or video"
// @Param caption formData string false "Caption"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /post [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user := currentUser(c)

	content, err := s.readUpload(c, "media")
	if err != nil {
		return s.fail(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		OwnerID: user.ID,
		Caption: c.FormValue("caption"),
		Media:   content,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{
		status:   fiber.StatusCreated,
		body:     post,
		redirect: "/feed",
	})
}

// GetPost handles GET /post/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	post, err := s.postService.Get(c.UserContext(), postID)
	if err != nil {
		return s.fail(c, err)
	}
	return s.send(c, response{body: post})
}

// UpdatePost handles PUT /post/:id and its form alias POST /post/:id/edit
// @Summary Update a post's caption
// @Description Owner only. A blank caption leaves the post unchanged.
// @Tags posts
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{caption=string} true "New caption"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	var req struct {
		Caption string `json:"caption" form:"caption"`
	}
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdateCaption(c.UserContext(), postID, currentUser(c).ID, req.Caption)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{body: post, redirect: "/feed"})
}

// DeletePost handles DELETE /post/:id and its form alias POST /post/:id/delete
// @Summary Delete a post
// @Description Owner only. Removes the post with its likes, comments and media.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.postService.Delete(c.UserContext(), postID, currentUser(c).ID); err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{
		body:     fiber.Map{"message": "Post removed"},
		redirect: "/feed",
	})
}

// ToggleLike handles PUT /post/:id/like
// @Summary Like or unlike a post
// @Description Returns the liker IDs, most recent first.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} integer
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/like [put]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	likes, err := s.socialService.ToggleLike(c.UserContext(), postID, currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{body: likes, redirect: backTo(c, "/feed")})
}

// AddComment handles POST /post/:id/comment
// @Summary Comment on a post
// @Description Returns the post's comments, oldest first.
// @Tags posts
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{text=string} true "Comment"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"))
	}

	comments, err := s.postService.AddComment(c.UserContext(), postID, currentUser(c).ID, req.Text)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{body: comments, redirect: backTo(c, "/feed")})
}

// CreatePostPage renders the upload form.
func (s *Server) CreatePostPage(c *fiber.Ctx) error {
	return c.Render("create-post", fiber.Map{
		"Title":       "New post",
		"CurrentUser": currentUser(c),
	})
}

// EditPostPage renders the caption form for the post's owner.
func (s *Server) EditPostPage(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	post, err := s.postService.GetForEdit(c.UserContext(), postID, currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.Render("edit-post", fiber.Map{
		"Title":       "Edit post",
		"Post":        post,
		"CurrentUser": currentUser(c),
	})
}
