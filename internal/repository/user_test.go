package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"lumen/internal/cache"
	"lumen/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupCache points the cache package at a throwaway miniredis for one test.
func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedUser  *models.User
		expectedError bool
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "testuser", Email: "test@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError {
				assert.Error(t, err)
				var appErr *models.AppError
				assert.ErrorAs(t, err, &appErr)
				assert.Equal(t, "NOT_FOUND", appErr.Code)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedUser.Username, user.Username)
				assert.Equal(t, tt.expectedUser.Email, user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "username", "posts_count", "followers_count", "following_count"}).
		AddRow(1, "testuser", 3, 12, 7)
	mock.ExpectQuery(`SELECT users\.\*,.+FROM "users"`).
		WillReturnRows(rows)

	user, err := repo.GetProfile(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, user.PostsCount)
	assert.Equal(t, 12, user.FollowersCount)
	assert.Equal(t, 7, user.FollowingCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFoundReturnsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByEmail(ctx, "missing@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfileFields(t *testing.T) {
	ctx := context.Background()

	t.Run("touches only the named columns", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "bio"=$1,"updated_at"=$2 WHERE id = $3 AND "users"."deleted_at" IS NULL`)).
			WithArgs("new bio", sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateProfileFields(ctx, 1, map[string]interface{}{"bio": "new bio"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "users" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateProfileFields(ctx, 99, map[string]interface{}{"bio": "x"})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		err := repo.UpdateProfileFields(ctx, 1, map[string]interface{}{})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_CachedReadKeepsStoredPasswordIntact(t *testing.T) {
	setupCache(t)
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const hash = "$2a$10$realbcrypthash"

	rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
		AddRow(1, "testuser", "test@example.com", hash)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
		WithArgs(1, 1).
		WillReturnRows(rows)

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, hash, first.Password)

	// Second read is served from the cache, where the hash is not serialized.
	second, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "", second.Password)

	// A profile update following the cached read must leave the password
	// column alone: the statement names its columns explicitly.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "bio"=$1,"updated_at"=$2 WHERE id = $3 AND "users"."deleted_at" IS NULL`)).
		WithArgs("fresh bio", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.UpdateProfileFields(ctx, 1, map[string]interface{}{"bio": "fresh bio"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetProfile_CachesResult(t *testing.T) {
	setupCache(t)
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "username", "posts_count", "followers_count", "following_count"}).
		AddRow(1, "testuser", 3, 12, 7)
	mock.ExpectQuery(`SELECT users\.\*,.+FROM "users"`).
		WillReturnRows(rows)

	first, err := repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, first.PostsCount)

	// Only one SQL query was expected; the second read must come from Redis.
	second, err := repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, second.PostsCount)
	assert.Equal(t, 12, second.FollowersCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.False(t, isUniqueConstraintError(errors.New("connection reset")))
	assert.True(t, isUniqueConstraintError(errors.New(`duplicate key value violates unique constraint "idx_users_email"`)))
	assert.True(t, isUniqueConstraintError(errors.New("ERROR: 23505")))
}
