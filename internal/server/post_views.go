package server

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
)

// PostListView is the compact projection used by post listings.
type PostListView struct {
	ID            uint   `json:"id"`
	Author        uint   `json:"author"`
	Content       string `json:"content"`
	LikesCount    int    `json:"likes_count"`
	CommentsCount int    `json:"comments_count"`
}

// PostDetailView is the full projection returned for a single post.
type PostDetailView struct {
	ID            uint      `json:"id"`
	Author        uint      `json:"author"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PostPicture   string    `json:"post_picture"`
	Hashtags      string    `json:"hashtags"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	Liked         bool      `json:"liked"`
}

func toPostListView(p *models.Post) PostListView {
	return PostListView{
		ID:            p.ID,
		Author:        p.UserID,
		Content:       p.Content,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
	}
}

func toPostListViews(posts []*models.Post) []PostListView {
	views := make([]PostListView, 0, len(posts))
	for _, p := range posts {
		views = append(views, toPostListView(p))
	}
	return views
}

func toPostDetailView(p *models.Post) PostDetailView {
	return PostDetailView{
		ID:            p.ID,
		Author:        p.UserID,
		Content:       p.Content,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		PostPicture:   p.PostPicture,
		Hashtags:      p.Hashtags,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		Liked:         p.Liked,
	}
}

// hashtagList accepts hashtags as a single string or as a list of strings, which
// is joined with spaces.
type hashtagList string

func (h *hashtagList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*h = hashtagList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New("hashtags must be a string or a list of strings")
	}
	*h = hashtagList(strings.Join(list, " "))
	return nil
}
