// Package seed populates a development database with plausible demo data.
package seed

import (
	"fmt"
	"math/rand"

	"lumen/internal/middleware"
	"lumen/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	userCount    = 15
	postsPerUser = 4
	// Every seeded account shares this password so the demo frontend can log in.
	demoPassword = "Password123!"
)

// Seed wipes and repopulates the database with demo users, posts, comments,
// likes and follow edges. Never run against production data.
func Seed(db *gorm.DB) error {
	middleware.Logger.Info("starting database seeding")

	if err := clearData(db); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}

	users, err := createUsers(db)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	middleware.Logger.Info("seeded users", "count", len(users))

	posts, err := createPosts(db, users)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	middleware.Logger.Info("seeded posts", "count", len(posts))

	if err := createComments(db, users, posts); err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}

	if err := createLikes(db, users, posts); err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}

	if err := createFollows(db, users); err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}

	middleware.Logger.Info("database seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	// Children first to satisfy foreign keys.
	for _, model := range []interface{}{
		&models.Like{}, &models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{},
	} {
		if err := db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, userCount)
	for i := 0; i < userCount; i++ {
		username := fmt.Sprintf("%s_%s", gofakeit.Word(), gofakeit.AnimalType())
		user := models.User{
			Username:    username,
			Email:       gofakeit.Email(),
			Password:    string(hashed),
			DisplayName: gofakeit.Name(),
			Bio:         gofakeit.Sentence(8),
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createPosts(db *gorm.DB, users []models.User) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(users)*postsPerUser)
	for _, user := range users {
		for i := 0; i < postsPerUser; i++ {
			post := models.Post{
				AuthorID:        user.ID,
				Text:            gofakeit.Paragraph(1, 3, 12, " "),
				AuthorUsername:  user.Username,
				AuthorAvatarURL: user.AvatarURL,
			}
			if rand.Intn(3) == 0 {
				post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
			}
			if err := db.Create(&post).Error; err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func createComments(db *gorm.DB, users []models.User, posts []models.Post) error {
	for _, post := range posts {
		for i := 0; i < rand.Intn(5); i++ {
			author := users[rand.Intn(len(users))]
			comment := models.Comment{
				PostID:          post.ID,
				AuthorID:        author.ID,
				Text:            gofakeit.Sentence(10),
				AuthorUsername:  author.Username,
				AuthorAvatarURL: author.AvatarURL,
			}
			if err := db.Create(&comment).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createLikes(db *gorm.DB, users []models.User, posts []models.Post) error {
	for _, post := range posts {
		// A random subset of users likes each post; the unique index keeps
		// duplicates out even if the random draw repeats.
		for _, user := range users {
			if rand.Intn(3) != 0 {
				continue
			}
			like := models.Like{UserID: user.ID, PostID: post.ID}
			if err := db.Where(models.Like{UserID: user.ID, PostID: post.ID}).
				FirstOrCreate(&like).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createFollows(db *gorm.DB, users []models.User) error {
	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID || rand.Intn(3) != 0 {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
			if err := db.Where(models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).
				FirstOrCreate(&follow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
