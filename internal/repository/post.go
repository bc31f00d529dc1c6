package repository

import (
	"context"
	"errors"

	"lumen/internal/cache"
	"lumen/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	GetByAuthorID(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (liked bool, likesCount int64, err error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	// The author's profile carries a posts count.
	cache.Invalidate(ctx, cache.ProfileKey(post.AuthorID))
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post

	var err error
	if viewerID == 0 {
		key := cache.PostKey(id)
		err = cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
			return r.applyPostDetails(r.db.WithContext(ctx), 0).First(&post, id).Error
		})
	} else {
		err = r.applyPostDetails(r.db.WithContext(ctx), viewerID).First(&post, id).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByAuthorID(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
// Reaction state is always derived from the likes table, never from per-viewer point reads.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked_by_viewer", viewerID)
	}

	return db.Select(selectQuery + ", false as liked_by_viewer")
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// Delete removes a post together with its likes and comments in a single transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	var authorID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Select("author_id").Where("id = ?", id).Scan(&authorID).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	cache.Invalidate(ctx, cache.ProfileKey(authorID))
	return nil
}

// ToggleLike flips the viewer's reaction on a post in a single transaction.
// The conditional insert is atomic; concurrent toggles never produce duplicate
// rows or lost updates.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, int64, error) {
	var liked bool
	var likesCount int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`INSERT INTO likes (user_id, post_id, created_at)
			 VALUES (?, ?, NOW())
			 ON CONFLICT (user_id, post_id) DO NOTHING`,
			userID, postID,
		)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			liked = true
		} else {
			// Already liked: toggle means remove.
			if err := tx.Unscoped().
				Where("user_id = ? AND post_id = ?", userID, postID).
				Delete(&models.Like{}).Error; err != nil {
				return err
			}
			liked = false
		}

		return tx.Model(&models.Like{}).
			Where("post_id = ?", postID).
			Count(&likesCount).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}

	cache.InvalidatePost(ctx, postID)
	return liked, likesCount, nil
}
