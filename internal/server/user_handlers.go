package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /profile/:username
// @Summary User profile
// @Description The user's posts, followers, following, counts and whether the viewer follows them.
// @Tags profiles
// @Produce json,html
// @Param username path string true "Username"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), c.Params("username"), currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{
		body: profile,
		view: "profile",
		data: fiber.Map{
			"Title":   profile.User.Username,
			"Profile": profile,
		},
	})
}

// ToggleFollow handles PUT /profile/:id/follow
// @Summary Follow or unfollow a user
// @Description Both counts are the target's after the toggle.
// @Tags profiles
// @Produce json
// @Param id path int true "Target user ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{id}/follow [put]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	result, err := s.socialService.ToggleFollow(c.UserContext(), currentUser(c).ID, targetID)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{body: result, redirect: backTo(c, "/feed")})
}

// UploadProfilePic handles POST /profile/upload-pic
// @Summary Upload a profile picture
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Param profilePic formData file true "Image"
// @Success 200 {object} object{message=string,profile_pic=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/upload-pic [post]
func (s *Server) UploadProfilePic(c *fiber.Ctx) error {
	user := currentUser(c)

	content, err := s.readUpload(c, "profilePic")
	if err != nil {
		return s.fail(c, err)
	}

	url, err := s.userService.UploadProfilePic(c.UserContext(), user.ID, content)
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{
		body: fiber.Map{
			"message":     "Profile picture updated",
			"profile_pic": url,
		},
		redirect: "/profile/" + user.Username,
	})
}
