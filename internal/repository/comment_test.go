package repository

import (
	"context"
	"testing"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")
	p1 := createPost(t, db, owner.ID, "one", time.Now())
	p2 := createPost(t, db, owner.ID, "two", time.Now())

	c1 := &models.Comment{UserID: other.ID, PostID: p1.ID, Content: "first"}
	c2 := &models.Comment{UserID: other.ID, PostID: p2.ID, Content: "second"}
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))

	t.Run("List all by default", func(t *testing.T) {
		all, err := repo.List(ctx, CommentFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("List by post", func(t *testing.T) {
		got, err := repo.List(ctx, CommentFilter{PostID: &p1.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].Content)
	})

	t.Run("List paginated", func(t *testing.T) {
		got, err := repo.List(ctx, CommentFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Update", func(t *testing.T) {
		c1.Content = "edited"
		require.NoError(t, repo.Update(ctx, c1))
		got, err := repo.GetByID(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, c2.ID))
		_, err := repo.GetByID(ctx, c2.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		assert.True(t, models.IsCode(repo.Delete(ctx, c2.ID), models.CodeNotFound))
	})
}
