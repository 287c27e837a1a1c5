package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/scheduler"
	"github.com/marinaua13/social-media-api/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-42"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		Env:             "test",
		AllowedOrigins:  "http://localhost:5173",
		JWTSecret:       "server-test-secret-0123456789abcdef",
		JWTIssuer:       "social-media-api",
		JWTAudience:     "social-media-client",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: time.Hour,
		UploadDir:       t.TempDir(),
		MediaURL:        "/media",
		MaxUploadSizeMB: 2,
	}
}

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	s, err := NewServerWithDeps(newTestConfig(t), testutil.NewSQLiteDB(t), nil)
	require.NoError(t, err)
	return s, s.NewApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

type testAccount struct {
	ID      uint
	Email   string
	Access  string
	Refresh string
}

func registerAndLogin(t *testing.T, app *fiber.App, email string) testAccount {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/user/create", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var user models.User
	require.NoError(t, json.Unmarshal(body, &user))

	resp, body = doJSON(t, app, http.MethodPost, "/api/user/token", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(body, &pair))
	return testAccount{ID: user.ID, Email: user.Email, Access: pair.Access, Refresh: pair.Refresh}
}

func createPost(t *testing.T, app *fiber.App, owner testAccount, content, hashtags string) PostDetailView {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/social/posts", owner.Access, map[string]string{
		"content":  content,
		"hashtags": hashtags,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var post PostDetailView
	require.NoError(t, json.Unmarshal(body, &post))
	return post
}

func getPost(t *testing.T, app *fiber.App, viewer testAccount, id uint) PostDetailView {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodGet, "/api/social/posts/"+itoa(id), viewer.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var post PostDetailView
	require.NoError(t, json.Unmarshal(body, &post))
	return post
}

func listPosts(t *testing.T, app *fiber.App, viewer testAccount, query string) []PostListView {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodGet, "/api/social/posts"+query, viewer.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var posts []PostListView
	require.NoError(t, json.Unmarshal(body, &posts))
	return posts
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestLikeWalkthrough(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")

	post := createPost(t, app, a, "hello", "#x")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/social/likes", a.Access, map[string]uint{"post": post.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "owner cannot like own post")

	resp, body := doJSON(t, app, http.MethodPost, "/api/social/likes", b.Access, map[string]uint{"post": post.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, 1, getPost(t, app, a, post.ID).LikesCount)
	assert.True(t, getPost(t, app, b, post.ID).Liked)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/likes", b.Access, map[string]uint{"post": post.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "second like is rejected")
	assert.Equal(t, 1, getPost(t, app, a, post.ID).LikesCount)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/social/likes/"+itoa(post.ID), b.Access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, getPost(t, app, a, post.ID).LikesCount)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/social/likes/"+itoa(post.ID), b.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unlike without a like")
}

func TestLikePost_MissingPost(t *testing.T) {
	_, app := newTestServer(t)
	b := registerAndLogin(t, app, "b@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/social/likes", b.Access, map[string]uint{"post": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/likes", b.Access, map[string]uint{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommentRules(t *testing.T) {
	s, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")
	post := createPost(t, app, a, "hello", "")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/social/comments", a.Access, map[string]any{
		"post":    post.ID,
		"content": "talking to myself",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var count int64
	require.NoError(t, s.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count, "rejected comment must not be stored")

	resp, body := doJSON(t, app, http.MethodPost, "/api/social/comments", b.Access, map[string]any{
		"post":    post.ID,
		"content": "nice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var comment models.Comment
	require.NoError(t, json.Unmarshal(body, &comment))
	assert.Equal(t, b.ID, comment.UserID)
	assert.Equal(t, 1, getPost(t, app, a, post.ID).CommentsCount)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/social/comments/"+itoa(comment.ID), a.Access, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "only the author edits")

	resp, body = doJSON(t, app, http.MethodPut, "/api/social/comments/"+itoa(comment.ID), b.Access, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "edited")

	resp, body = doJSON(t, app, http.MethodGet, "/api/social/comments?post="+itoa(post.ID), a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(body, &comments))
	assert.Len(t, comments, 1)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/social/comments?post=abc", a.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/social/comments/"+itoa(comment.ID), b.Access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/social/comments/"+itoa(comment.ID), b.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPostsFilters(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")

	first := createPost(t, app, a, "Going to the #Beach", "#beach")
	createPost(t, app, b, "working late", "")

	all := listPosts(t, app, a, "")
	require.Len(t, all, 2)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	byID := listPosts(t, app, a, "?post="+itoa(first.ID))
	require.Len(t, byID, 1)
	assert.Equal(t, first.ID, byID[0].ID)

	assert.Len(t, listPosts(t, app, a, "?hashtags=beach"), 1)
	assert.Len(t, listPosts(t, app, a, "?filter_by=own"), 1)

	today := time.Now().UTC().Format(dateLayout)
	assert.Len(t, listPosts(t, app, a, "?date="+today), 2)
	assert.Empty(t, listPosts(t, app, a, "?date=2001-01-01"))

	assert.Len(t, listPosts(t, app, a, "?limit=1"), 1)

	resp, body := doJSON(t, app, http.MethodGet, "/api/social/posts?date=yesterday", a.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "YYYY-MM-DD")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/social/posts?post=first", a.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPostsFilterByFollowingAndLiked(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")
	c := registerAndLogin(t, app, "c@example.com")

	bPost := createPost(t, app, b, "from b", "")
	createPost(t, app, c, "from c", "")

	resp, body := doJSON(t, app, http.MethodPost, "/api/user/follow-unfollow", a.Access, map[string]string{"email": b.Email})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	following := listPosts(t, app, a, "?filter_by=following")
	require.Len(t, following, 1)
	assert.Equal(t, bPost.ID, following[0].ID)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/likes", a.Access, map[string]uint{"post": bPost.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	liked := listPosts(t, app, a, "?liked=true")
	require.Len(t, liked, 1)
	assert.Equal(t, bPost.ID, liked[0].ID)
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")
	post := createPost(t, app, a, "mine", "")

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/social/posts/"+itoa(post.ID), b.Access, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/social/posts/"+itoa(post.ID), a.Access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/social/posts/"+itoa(post.ID), a.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePost_Validation(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/social/posts", a.Access, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/social/posts", a.Access, map[string]any{
		"content":  "tags as a list",
		"hashtags": []string{"#go", "#fiber"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"hashtags":"#go #fiber"`)
}

func TestFollowFlow(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/api/user/follow-unfollow", a.Access, map[string]string{"email": b.Email})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "You are now following b@example.com")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/follow-unfollow", a.Access, map[string]string{"email": a.Email})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "self follow")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/follow-unfollow", a.Access, map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/user/follow-unfollow?view_type=following", a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	assert.Equal(t, b.Email, users[0].Email)

	resp, body = doJSON(t, app, http.MethodGet, "/api/user/follow-unfollow?view_type=followers", b.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	assert.Equal(t, a.Email, users[0].Email)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/user/follow-unfollow?view_type=everyone", a.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/user/follow-unfollow?email="+b.Email, a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "You have unfollowed b@example.com")

	resp, body = doJSON(t, app, http.MethodGet, "/api/user/follow-unfollow?view_type=following", a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Empty(t, users)
}

func TestAuthFlow(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/user/create", "", map[string]string{
		"email":    "A@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "duplicate email")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token", "", map[string]string{
		"email":    a.Email,
		"password": "wrong-password-1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token", "", map[string]string{"email": a.Email})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/user/me", a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), a.Email)
	assert.NotContains(t, string(body), "password")

	resp, body = doJSON(t, app, http.MethodPost, "/api/user/token/refresh", "", map[string]string{"refresh": a.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"access"`)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token/refresh", "", map[string]string{"refresh": a.Access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "access token is not a refresh token")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/logout", a.Access, map[string]string{"refresh": a.Refresh})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token/refresh", "", map[string]string{"refresh": a.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked refresh token")
}

func TestAuthRequired(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/social/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), models.CodeUnauthorized)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/user/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfiles(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")

	resp, body := doJSON(t, app, http.MethodPatch, "/api/user/me", a.Access, map[string]string{"bio": "hi there"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "hi there")

	resp, body = doJSON(t, app, http.MethodGet, "/api/user/profiles/"+b.Email, a.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), b.Email)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/user/profiles/"+b.Email, a.Access, map[string]string{"bio": "hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/user/profiles/"+b.Email, a.Access, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/user/profiles?email=a@", b.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	assert.Equal(t, a.Email, users[0].Email)

	// password change keeps the account usable with the new secret
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/user/me", a.Access, map[string]string{"password": "another-pass-99"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token", "", map[string]string{"email": a.Email, "password": "another-pass-99"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/user/profiles/"+b.Email, b.Access, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/user/profiles/"+b.Email, a.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletedAccountTokensStopWorking(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")
	post := createPost(t, app, a, "still here", "")

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/user/profiles/"+b.Email, b.Access, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/likes", b.Access, map[string]uint{"post": post.ID})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/comments", b.Access, map[string]any{"post": post.ID, "content": "ghost"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/follow-unfollow", b.Access, map[string]string{"email": a.Email})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/user/token/refresh", "", map[string]string{"refresh": b.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	got := getPost(t, app, a, post.ID)
	assert.Equal(t, 0, got.LikesCount)
	assert.Equal(t, 0, got.CommentsCount)
}

func TestSchedulePostCreation(t *testing.T) {
	s, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")

	now := time.Now().UTC()
	s.scheduler.SetClock(func() time.Time { return now })

	resp, body := doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
		"content":       "later",
		"hashtags":      "#soon",
		"delay_minutes": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Post creation scheduled")
	assert.Empty(t, listPosts(t, app, a, ""), "nothing is created before the delay")

	processed, err := s.scheduler.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)

	now = now.Add(3 * time.Minute)
	processed, err = s.scheduler.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	posts := listPosts(t, app, a, "")
	require.Len(t, posts, 1)
	assert.Equal(t, "later", posts[0].Content)
	assert.Equal(t, a.ID, posts[0].Author)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
		"content":       "too soon",
		"delay_minutes": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
		"content": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSchedulePostCreation_RejectsOverlongDelay(t *testing.T) {
	s, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")

	now := time.Now().UTC()
	s.scheduler.SetClock(func() time.Time { return now })

	// 307445736 minutes wraps time.Duration to about 86 seconds.
	for _, minutes := range []int{scheduler.MaxDelayMinutes + 1, 307445736} {
		resp, body := doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
			"content":       "far future",
			"delay_minutes": minutes,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		assert.Contains(t, string(body), "delay_minutes must be at most")
	}

	now = now.Add(2 * time.Minute)
	processed, err := s.scheduler.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, listPosts(t, app, a, ""))

	resp, body := doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
		"content":       "past",
		"delay_minutes": -307445736,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = doJSON(t, app, http.MethodPost, "/api/social/posts/schedule_post_creation", a.Access, map[string]any{
		"content":       "next year",
		"delay_minutes": scheduler.MaxDelayMinutes,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestUploadPostImage(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")
	b := registerAndLogin(t, app, "b@example.com")
	post := createPost(t, app, a, "with a picture", "")

	upload := func(acc testAccount, field string, content []byte) (*http.Response, []byte) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile(field, "img.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/social/posts/"+itoa(post.ID)+"/upload-image", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+acc.Access)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, data
	}

	resp, _ := upload(b, "post_picture", testutil.TinyPNG(t, 20, 20))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = upload(a, "image", testutil.TinyPNG(t, 20, 20))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "wrong form field")

	resp, _ = upload(a, "post_picture", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := upload(a, "post_picture", testutil.TinyPNG(t, 20, 20))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var view PostDetailView
	require.NoError(t, json.Unmarshal(body, &view))
	require.True(t, strings.HasPrefix(view.PostPicture, "/media/post_pics/"), view.PostPicture)

	served, err := app.Test(httptest.NewRequest(http.MethodGet, view.PostPicture, nil), -1)
	require.NoError(t, err)
	defer func() { _ = served.Body.Close() }()
	assert.Equal(t, http.StatusOK, served.StatusCode)
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, app := newTestServer(t)
	a := registerAndLogin(t, app, "a@example.com")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/ws?token=bogus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/ws?token="+a.Access, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode, "plain GET is not an upgrade")
}

func TestHealthChecks(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"up"`)

	resp, body = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "disabled", ready.Checks["redis"])
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), models.CodeNotFound)
}

func TestShutdownWithoutStart(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Shutdown(context.Background()))
}
