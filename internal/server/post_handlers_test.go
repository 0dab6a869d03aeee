package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"mosaic/internal/cache"
	"mosaic/internal/models"
	"mosaic/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedBody struct {
	Success    bool          `json:"success"`
	Count      int           `json:"count"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int64         `json:"total"`
	Data       []models.Post `json:"data"`
}

// seedPosts inserts n posts for ownerID, one minute apart, oldest first.
func (e *testEnv) seedPosts(t *testing.T, ownerID uint, n int) []models.Post {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := models.Post{
			Caption:   fmt.Sprintf("post %d", i),
			MediaURL:  fmt.Sprintf("/media/posts/%d.jpg", i),
			MediaType: "image/jpeg",
			UserID:    ownerID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, e.srv.db.Create(&p).Error)
		posts = append(posts, p)
	}
	return posts
}

func TestCreatePost(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")

	post := env.createPost(t, alice.Token, "  sunset  ")
	assert.Equal(t, "sunset", post.Caption)
	assert.Equal(t, alice.User.ID, post.UserID)
	assert.Equal(t, "alice", post.User.Username)
	assert.Equal(t, "image/jpeg", post.MediaType)
	assert.NotEmpty(t, post.MediaURL)
	assert.NotEmpty(t, post.MediaWebPURL)
	assert.Len(t, env.store.Keys(), 2)
}

func TestCreatePost_Video(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")

	resp := env.do(t, multipartRequest(t, "/post", "media", testutil.FakeMP4(), nil, alice.Token))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	post := decodeBody[models.Post](t, resp)
	assert.Equal(t, "video/mp4", post.MediaType)
	assert.Empty(t, post.MediaWebPURL)
}

func TestCreatePost_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    []byte
		token      bool
		wantStatus int
		wantCode   string
	}{
		{"no session", []byte("x"), false, fiber.StatusUnauthorized, models.CodeUnauthorized},
		{"missing media", nil, true, fiber.StatusBadRequest, models.CodeMediaRequired},
		{"unsupported type", []byte("plain text is not media"), true, fiber.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestServer(t)
			token := ""
			if tt.token {
				token = env.register(t, "alice").Token
			}

			resp := env.do(t, multipartRequest(t, "/post", "media", tt.content,
				map[string]string{"caption": "hi"}, token))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeBody[models.ErrorResponse](t, resp)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Empty(t, env.store.Keys())
		})
	}
}

func TestCreatePost_StoreWithoutURL(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	env.store.EmptyURL = true

	resp := env.do(t, multipartRequest(t, "/post", "media", testutil.TinyPNG(t, 4, 4), nil, alice.Token))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeMediaRequired, body.Code)
}

func TestFeed_Pagination(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	seeded := env.seedPosts(t, alice.User.ID, 5)

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantCount int
		firstID   uint
	}{
		{"default page", "", 1, 4, seeded[4].ID},
		{"second page", "?page=2", 2, 1, seeded[0].ID},
		{"out of range", "?page=3", 3, 0, 0},
		{"zero means first", "?page=0", 1, 4, seeded[4].ID},
		{"garbage means first", "?page=abc", 1, 4, seeded[4].ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, jsonRequest(t, http.MethodGet, "/feed"+tt.query, nil, alice.Token))
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			body := decodeBody[feedBody](t, resp)
			assert.True(t, body.Success)
			assert.Equal(t, tt.wantPage, body.Page)
			assert.Equal(t, 2, body.TotalPages)
			assert.Equal(t, int64(5), body.Total)
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Data, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.firstID, body.Data[0].ID)
				assert.Equal(t, "alice", body.Data[0].User.Username)
			}
		})
	}
}

func TestFeed_HTML(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	env.seedPosts(t, alice.User.ID, 1)

	resp := env.do(t, htmlRequest(http.MethodGet, "/feed", "", alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), "post 0")
	assert.Contains(t, string(html), "/post/")
}

func TestToggleLike(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.seedPosts(t, alice.User.ID, 1)[0]
	path := fmt.Sprintf("/post/%d/like", post.ID)

	resp := env.do(t, jsonRequest(t, http.MethodPut, path, nil, bob.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{bob.User.ID}, decodeBody[[]uint](t, resp))

	resp = env.do(t, jsonRequest(t, http.MethodPut, path, nil, alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	likes := decodeBody[[]uint](t, resp)
	require.Len(t, likes, 2)
	assert.ElementsMatch(t, []uint{alice.User.ID, bob.User.ID}, likes)

	// A second toggle by the same user restores the previous state.
	resp = env.do(t, jsonRequest(t, http.MethodPut, path, nil, bob.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{alice.User.ID}, decodeBody[[]uint](t, resp))

	resp = env.do(t, jsonRequest(t, http.MethodPut, "/post/9999/like", nil, bob.Token))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestToggleLike_HTMLRedirectsBack(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	post := env.seedPosts(t, alice.User.ID, 1)[0]

	req := htmlRequest(http.MethodPost, fmt.Sprintf("/post/%d/like", post.ID), "", alice.Token)
	req.Header.Set(fiber.HeaderReferer, "http://example.com/feed?page=1")
	resp := env.do(t, req)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/feed?page=1", resp.Header.Get(fiber.HeaderLocation))
}

func TestUpdatePost(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.seedPosts(t, alice.User.ID, 1)[0]
	path := fmt.Sprintf("/post/%d", post.ID)

	tests := []struct {
		name        string
		token       string
		path        string
		caption     string
		wantStatus  int
		wantCaption string
	}{
		{"not owner", bob.Token, path, "hijacked", fiber.StatusForbidden, ""},
		{"missing post", alice.Token, "/post/9999", "x", fiber.StatusNotFound, ""},
		{"blank caption keeps post", alice.Token, path, "   ", fiber.StatusOK, "post 0"},
		{"owner updates", alice.Token, path, "edited", fiber.StatusOK, "edited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, jsonRequest(t, http.MethodPut, tt.path, map[string]string{"caption": tt.caption}, tt.token))
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == fiber.StatusOK {
				assert.Equal(t, tt.wantCaption, decodeBody[models.Post](t, resp).Caption)
			}
		})
	}

	resp := env.do(t, htmlRequest(http.MethodPost, path+"/edit", "caption=from+form", alice.Token))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/feed", resp.Header.Get(fiber.HeaderLocation))

	resp = env.do(t, jsonRequest(t, http.MethodGet, path, nil, alice.Token))
	assert.Equal(t, "from form", decodeBody[models.Post](t, resp).Caption)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.createPost(t, alice.Token, "bye")
	path := fmt.Sprintf("/post/%d", post.ID)

	env.do(t, jsonRequest(t, http.MethodPut, path+"/like", nil, bob.Token))
	env.do(t, jsonRequest(t, http.MethodPost, path+"/comment", map[string]string{"text": "nice"}, bob.Token))

	resp := env.do(t, jsonRequest(t, http.MethodDelete, path, nil, bob.Token))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Len(t, env.store.Keys(), 2)

	resp = env.do(t, jsonRequest(t, http.MethodDelete, path, nil, alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "Post removed", body["message"])
	assert.Empty(t, env.store.Keys())

	var likes, comments int64
	require.NoError(t, env.srv.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	require.NoError(t, env.srv.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	resp = env.do(t, jsonRequest(t, http.MethodGet, path, nil, alice.Token))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, jsonRequest(t, http.MethodDelete, path, nil, alice.Token))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeletePost_KeepsMediaOfIdenticalUpload(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	first := env.createPost(t, alice.Token, "once")
	second := env.createPost(t, alice.Token, "twice")
	require.NotEqual(t, first.MediaURL, second.MediaURL)
	require.NotEqual(t, first.MediaWebPURL, second.MediaWebPURL)
	require.Len(t, env.store.Keys(), 4)

	resp := env.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/post/%d", first.ID), nil, alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, ok := env.store.Get(strings.TrimPrefix(second.MediaURL, "/media/"))
	assert.True(t, ok, "surviving post lost its image")
	_, ok = env.store.Get(strings.TrimPrefix(second.MediaWebPURL, "/media/"))
	assert.True(t, ok, "surviving post lost its webp rendition")
	assert.Len(t, env.store.Keys(), 2)
}

// TestFeed_CacheInvalidatedByMutations swaps the package-level Redis client,
// so it must not run in parallel.
func TestFeed_CacheInvalidatedByMutations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.createPost(t, alice.Token, "cached")

	getFeed := func() feedBody {
		t.Helper()
		resp := env.do(t, jsonRequest(t, http.MethodGet, "/feed", nil, bob.Token))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		return decodeBody[feedBody](t, resp)
	}

	feed := getFeed()
	require.Len(t, feed.Data, 1)
	assert.Empty(t, feed.Data[0].Likes)

	// Rows written behind the repository's back stay invisible until a
	// mutation bumps the feed version.
	env.seedPosts(t, alice.User.ID, 1)
	assert.Equal(t, int64(1), getFeed().Total)

	path := fmt.Sprintf("/post/%d", post.ID)
	resp := env.do(t, jsonRequest(t, http.MethodPut, path+"/like", nil, bob.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	feed = getFeed()
	assert.Equal(t, int64(2), feed.Total)
	require.NotEmpty(t, feed.Data)
	assert.Equal(t, post.ID, feed.Data[0].ID)
	assert.Equal(t, []uint{bob.User.ID}, feed.Data[0].Likes)

	resp = env.do(t, jsonRequest(t, http.MethodPost, path+"/comment", map[string]string{"text": "fresh"}, bob.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	feed = getFeed()
	require.Len(t, feed.Data[0].Comments, 1)
	assert.Equal(t, "fresh", feed.Data[0].Comments[0].Text)

	newest := env.createPost(t, alice.Token, "newest")
	feed = getFeed()
	assert.Equal(t, int64(3), feed.Total)
	assert.Equal(t, newest.ID, feed.Data[0].ID)

	resp = env.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/post/%d", newest.ID), nil, alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	feed = getFeed()
	assert.Equal(t, int64(2), feed.Total)
	assert.Equal(t, post.ID, feed.Data[0].ID)
}

func TestAddComment(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.seedPosts(t, alice.User.ID, 1)[0]
	path := fmt.Sprintf("/post/%d/comment", post.ID)

	resp := env.do(t, jsonRequest(t, http.MethodPost, path, map[string]string{"text": "  "}, bob.Token))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeBody[models.ErrorResponse](t, resp).Code)

	resp = env.do(t, jsonRequest(t, http.MethodPost, "/post/9999/comment", map[string]string{"text": "hi"}, bob.Token))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, jsonRequest(t, http.MethodPost, path, map[string]string{"text": "first"}, bob.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = env.do(t, jsonRequest(t, http.MethodPost, path, map[string]string{"text": "second"}, alice.Token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	comments := decodeBody[[]models.Comment](t, resp)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "bob", comments[0].User.Username)
	assert.Equal(t, "second", comments[1].Text)
}

func TestEditPostPage_OwnerOnly(t *testing.T) {
	t.Parallel()
	env := newTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.seedPosts(t, alice.User.ID, 1)[0]
	path := fmt.Sprintf("/edit-post/%d", post.ID)

	resp := env.do(t, htmlRequest(http.MethodGet, path, "", alice.Token))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.do(t, htmlRequest(http.MethodGet, path, "", bob.Token))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
