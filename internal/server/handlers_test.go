package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLike_RoundTrip(t *testing.T) {
	h := newHarness(t)
	p := h.post(t, "user_seed_1", "Team-ups win games")

	var first, second models.ActionResult
	h.do(t, httptest.NewRequest(http.MethodPost, postPath(p.ID, "/like"), nil), "user_seed_2", &first)
	require.True(t, first.Success)
	require.NotNil(t, first.Active)
	assert.True(t, *first.Active)

	var count int64
	h.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", "user_seed_2", p.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	h.do(t, httptest.NewRequest(http.MethodPost, postPath(p.ID, "/like"), nil), "user_seed_2", &second)
	require.NotNil(t, second.Active)
	assert.False(t, *second.Active)

	h.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", "user_seed_2", p.ID).Count(&count)
	assert.Zero(t, count)
}

func TestToggleRepostAndSave(t *testing.T) {
	h := newHarness(t)
	p := h.post(t, "user_seed_1", "Assemble")

	var result models.ActionResult
	resp := h.do(t, httptest.NewRequest(http.MethodPost, postPath(p.ID, "/repost"), nil), "user_seed_2", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *result.Active)

	resp = h.do(t, httptest.NewRequest(http.MethodPost, postPath(p.ID, "/save"), nil), "user_seed_2", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *result.Active)

	var saved int64
	h.db.Model(&models.SavedPost{}).Where("user_id = ?", "user_seed_2").Count(&saved)
	assert.Equal(t, int64(1), saved)
}

func TestToggle_InvalidInput(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		target  string
		status  int
		message string
	}{
		{"non numeric post id", "/api/posts/abc/like", http.StatusBadRequest, "Invalid ID"},
		{"zero post id", "/api/posts/0/like", http.StatusBadRequest, ""},
		{"self follow", "/api/users/user_seed_1/follow", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result models.ActionResult
			resp := h.do(t, httptest.NewRequest(http.MethodPost, tt.target, nil), "user_seed_1", &result)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, result.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, result.Error)
			}
		})
	}
}

func TestToggleFollow(t *testing.T) {
	h := newHarness(t)

	var result models.ActionResult
	resp := h.do(t, httptest.NewRequest(http.MethodPost, "/api/users/user_seed_2/follow", nil), "user_seed_1", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *result.Active)

	var follows int64
	h.db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", "user_seed_1", "user_seed_2").Count(&follows)
	assert.Equal(t, int64(1), follows)
}

func TestAddComment(t *testing.T) {
	h := newHarness(t)
	p := h.post(t, "user_seed_1", "Who mains Loki?")

	t.Run("too long", func(t *testing.T) {
		var result models.ActionResult
		req := formRequest(http.MethodPost, postPath(p.ID, "/comments"), url.Values{"desc": {strings.Repeat("x", 141)}})
		resp := h.do(t, req, "user_seed_2", &result)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, result.Success)

		var replies int64
		h.db.Model(&models.Post{}).Where("parent_post_id = ?", p.ID).Count(&replies)
		assert.Zero(t, replies)
	})

	t.Run("reply stored", func(t *testing.T) {
		var result models.ActionResult
		req := formRequest(http.MethodPost, postPath(p.ID, "/comments"), url.Values{"desc": {"Me, every match"}})
		resp := h.do(t, req, "user_seed_2", &result)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.True(t, result.Success)

		var reply models.Post
		require.NoError(t, h.db.Where("parent_post_id = ?", p.ID).First(&reply).Error)
		assert.Equal(t, "user_seed_2", reply.UserID)
		assert.Equal(t, "Me, every match", reply.Desc)
	})
}

func TestAddPost(t *testing.T) {
	h := newHarness(t)

	t.Run("with image", func(t *testing.T) {
		var result models.ActionResult
		req := multipartRequest(t, "/api/posts",
			map[string]string{"desc": "New skin dropped", "imgType": "square", "isSensitive": "on"},
			formFilePart{field: "file", name: "skin.png", data: testutil.PNG(t, 4, 4)})
		resp := h.do(t, req, "user_seed_1", &result)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.True(t, result.Success)

		var post models.Post
		require.NoError(t, h.db.Where("user_id = ?", "user_seed_1").First(&post).Error)
		assert.Equal(t, "/posts/a.png", post.Img)
		assert.Equal(t, 600, post.ImgHeight)
		assert.True(t, post.IsSensitive)
		assert.Len(t, h.media.Requests(), 1)
	})

	t.Run("bad sensitivity flag", func(t *testing.T) {
		var result models.ActionResult
		req := multipartRequest(t, "/api/posts", map[string]string{"desc": "hi", "isSensitive": "maybe"})
		resp := h.do(t, req, "user_seed_1", &result)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid isSensitive value", result.Error)
	})

	t.Run("upload failure", func(t *testing.T) {
		h.media.mu.Lock()
		h.media.status = http.StatusInternalServerError
		h.media.body = `{"message":"boom"}`
		h.media.mu.Unlock()

		var result models.ActionResult
		req := multipartRequest(t, "/api/posts", map[string]string{"desc": "retry"},
			formFilePart{field: "file", name: "skin.png", data: testutil.PNG(t, 4, 4)})
		resp := h.do(t, req, "user_seed_1", &result)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.False(t, result.Success)
	})
}

func TestDeletePost(t *testing.T) {
	h := newHarness(t)
	p := h.post(t, "user_seed_1", "Delete me")

	var result models.ActionResult
	resp := h.do(t, httptest.NewRequest(http.MethodDelete, postPath(p.ID, ""), nil), "user_seed_2", &result)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Unauthorized", result.Error)

	resp = h.do(t, httptest.NewRequest(http.MethodDelete, postPath(p.ID, ""), nil), "user_seed_1", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)

	var remaining int64
	h.db.Model(&models.Post{}).Where("id = ?", p.ID).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)

	t.Run("only submitted fields change", func(t *testing.T) {
		require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", "user_seed_1").
			Update("location", "Stark Tower").Error)

		var result models.ActionResult
		req := formRequest(http.MethodPost, "/api/settings/profile",
			url.Values{"bio": {"Genius. Duelist."}, "role": {"duelist"}, "username": {"IronLegion"}})
		resp := h.do(t, req, "user_seed_1", &result)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, result.Success)

		var user models.User
		require.NoError(t, h.db.First(&user, "id = ?", "user_seed_1").Error)
		assert.Equal(t, "Genius. Duelist.", user.Bio)
		assert.Equal(t, "Stark Tower", user.Location)
		require.NotNil(t, user.Role)
		assert.Equal(t, models.RoleDuelist, *user.Role)
	})

	t.Run("invalid rank", func(t *testing.T) {
		var result models.ActionResult
		req := formRequest(http.MethodPost, "/api/settings/profile", url.Values{"rank": {"SILVER IV"}})
		resp := h.do(t, req, "user_seed_1", &result)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid rank", result.Error)
	})

	t.Run("profile picture", func(t *testing.T) {
		var result models.ActionResult
		req := multipartRequest(t, "/api/settings/profile", nil,
			formFilePart{field: "profilePic", name: "me.png", data: testutil.PNG(t, 4, 4)})
		resp := h.do(t, req, "user_seed_2", &result)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var user models.User
		require.NoError(t, h.db.First(&user, "id = ?", "user_seed_2").Error)
		assert.Equal(t, "/posts/a.png", user.Img)
		assert.Contains(t, h.identity.Requests(), "PATCH /users/user_seed_2/metadata")
	})
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	h.post(t, "user_seed_2", "Bye")

	req := httptest.NewRequest(http.MethodDelete, "/api/account", nil)
	req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: h.token(t, "user_seed_2")})
	var result models.ActionResult
	resp := h.do(t, req, "", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Success)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), identity.SessionCookie+"=")

	assert.Equal(t, []string{"DELETE /users/user_seed_2"}, h.identity.Requests())
	var users int64
	h.db.Model(&models.User{}).Where("id = ?", "user_seed_2").Count(&users)
	assert.Zero(t, users)
}

func TestViews(t *testing.T) {
	h := newHarness(t)
	root := h.post(t, "user_seed_1", "Feed me")
	reply := &models.Post{UserID: "user_seed_2", Desc: "Reply", ParentPostID: &root.ID}
	require.NoError(t, h.db.Create(reply).Error)

	t.Run("feed lists top-level posts", func(t *testing.T) {
		var view models.FeedView
		resp := h.do(t, httptest.NewRequest(http.MethodGet, "/api/feed", nil), "", &view)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, view.Posts, 1)
		assert.Equal(t, root.ID, view.Posts[0].ID)
	})

	t.Run("profile", func(t *testing.T) {
		var view models.ProfileView
		resp := h.do(t, httptest.NewRequest(http.MethodGet, "/api/users/IronLegion", nil), "", &view)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, view.User)
		assert.Equal(t, "user_seed_1", view.User.ID)
	})

	t.Run("unknown profile", func(t *testing.T) {
		var body models.ErrorResponse
		resp := h.do(t, httptest.NewRequest(http.MethodGet, "/api/users/Nobody", nil), "", &body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, models.CodeNotFound, body.Code)
	})

	t.Run("status with replies", func(t *testing.T) {
		var view models.StatusView
		target := "/api/users/IronLegion/status/" + strconv.FormatUint(uint64(root.ID), 10)
		resp := h.do(t, httptest.NewRequest(http.MethodGet, target, nil), "", &view)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, view.Post)
		assert.Equal(t, root.ID, view.Post.ID)
		require.Len(t, view.Replies, 1)
		assert.Equal(t, reply.ID, view.Replies[0].ID)
	})
}

func TestIdentityWebhook_NotConfigured(t *testing.T) {
	h := newHarness(t)
	h.server.webhooks = nil

	var result models.ActionResult
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", strings.NewReader(`{}`))
	resp := h.do(t, req, "", &result)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Webhooks are not configured", result.Error)
}
