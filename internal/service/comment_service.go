package service

import (
	"context"
	"strings"

	"lumen/internal/models"
	"lumen/internal/repository"
	"lumen/internal/validation"
)

// CommentService handles the append-only comment log under each post.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
}

type CreateCommentInput struct {
	UserID uint
	PostID uint
	Text   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
	}
}

// CreateComment appends a comment to a post. The commenter's username and
// avatar are snapshotted onto the comment, mirroring how posts denormalize
// their author.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if err := validation.ValidateCommentText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		AuthorID:        in.UserID,
		Text:            text,
		AuthorUsername:  author.Username,
		AuthorAvatarURL: author.AvatarURL,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}
