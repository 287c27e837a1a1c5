package repository

import (
	"testing"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: email[:1] + "user", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, owner uint, content string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: owner, Content: content, CreatedAt: at.UTC(), UpdatedAt: at.UTC()}
	require.NoError(t, db.Create(p).Error)
	return p
}
