package server

import (
	"github.com/gofiber/fiber/v2"
)

// Feed handles GET /feed
// @Summary Paginated feed
// @Description Four posts per page, newest first. Out-of-range pages are empty.
// @Tags feed
// @Produce json,html
// @Param page query int false "Page number (default 1)"
// @Success 200 {object} object{success=bool,count=int,page=int,total_pages=int,total=int,data=[]models.Post}
// @Failure 401 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) Feed(c *fiber.Ctx) error {
	feed, err := s.feedService.GetFeed(c.UserContext(), pageParam(c))
	if err != nil {
		return s.fail(c, err)
	}

	return s.send(c, response{
		body: fiber.Map{
			"success":     true,
			"count":       feed.Count,
			"page":        feed.Page,
			"total_pages": feed.TotalPages,
			"total":       feed.Total,
			"data":        feed.Posts,
		},
		view: "feed",
		data: fiber.Map{
			"Title":    "Feed",
			"Feed":     feed,
			"HasPrev":  feed.Page > 1,
			"PrevPage": feed.Page - 1,
			"HasNext":  feed.Page < feed.TotalPages,
			"NextPage": feed.Page + 1,
		},
	})
}
