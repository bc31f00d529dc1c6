package service

import (
	"context"
	"strings"
	"testing"

	"lumen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint, int, int) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) { return nil, nil },
	}
}

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo(), noopUserRepo())
	ctx := context.Background()

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1})
		assertValidationError(t, err)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Text: "   \n\t"})
		assertValidationError(t, err)
	})

	t.Run("text too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Text: strings.Repeat("x", 1001)})
		assertValidationError(t, err)
	})
}

func TestCommentService_CreateComment_MissingPost(t *testing.T) {
	t.Parallel()

	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	svc := NewCommentService(noopCommentRepo(), postRepo, noopUserRepo())

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{UserID: 1, PostID: 404, Text: "hi"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestCommentService_CreateComment_SnapshotsAuthor(t *testing.T) {
	t.Parallel()

	var created *models.Comment
	commentRepo := noopCommentRepo()
	commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 5
		created = c
		return nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo())

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{UserID: 1, PostID: 2, Text: "  nice  "})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "nice", created.Text)
	assert.Equal(t, "alice", created.AuthorUsername)
	assert.Equal(t, "https://cdn.example.com/alice.png", created.AuthorAvatarURL)
	assert.Equal(t, uint(2), created.PostID)
}

func TestCommentService_ListComments_ClampsPagination(t *testing.T) {
	t.Parallel()

	var gotLimit int
	commentRepo := noopCommentRepo()
	commentRepo.listByPostFn = func(_ context.Context, _ uint, limit, _ int) ([]*models.Comment, error) {
		gotLimit = limit
		return nil, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo())

	_, err := svc.ListComments(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)

	_, err = svc.ListComments(context.Background(), 1, 999, 0)
	require.NoError(t, err)
	assert.Equal(t, 200, gotLimit)
}
