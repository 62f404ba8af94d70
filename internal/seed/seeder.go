package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ModeratorEmail is the seeded moderator account.
const ModeratorEmail = "moderator@example.com"

// Options controls how much data SeedDev creates.
type Options struct {
	Users          int
	Threads        int
	PostsPerThread int
	Reports        int
	// Password is shared by every seeded account.
	Password string
	// Seed makes runs reproducible; zero picks a random one.
	Seed int64
}

// DefaultOptions is a forum small enough to browse by hand.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		Threads:        30,
		PostsPerThread: 8,
		Reports:        10,
		Password:       "password123",
	}
}

// Result counts what a seeding run created.
type Result struct {
	Users   int
	Threads int
	Posts   int
	Reports int
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	forum *forum.Service
}

// NewSeeder creates a new seeder instance. Content goes through svc so
// thread and author counters stay consistent.
func NewSeeder(db *gorm.DB, svc *forum.Service) *Seeder {
	if svc == nil {
		svc = forum.NewService(db)
	}
	return &Seeder{db: db, forum: svc}
}

// SeedDev creates users (the first one a moderator), threads with replies,
// and open reports.
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Result, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Seed returns an error only for unsupported argument types.
	_ = gofakeit.Seed(seed)

	result := &Result{}

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	result.Users = len(users)
	if len(users) < 2 {
		return result, nil
	}

	logger.Log.Info("Creating threads...", zap.Int("count", opts.Threads))
	posts, threads, err := s.seedThreads(ctx, users, opts.Threads, opts.PostsPerThread)
	if err != nil {
		return nil, fmt.Errorf("failed to seed threads: %w", err)
	}
	result.Threads = threads
	result.Posts = len(posts)

	logger.Log.Info("Creating reports...", zap.Int("count", opts.Reports))
	if result.Reports, err = s.seedReports(ctx, users, posts, opts.Reports); err != nil {
		return nil, fmt.Errorf("failed to seed reports: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", result.Users),
		zap.Int("threads", result.Threads),
		zap.Int("posts", result.Posts),
		zap.Int("reports", result.Reports),
	)
	return result, nil
}

// Clean removes all forum data (use with caution!)
func (s *Seeder) Clean(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	// Delete in reverse order of dependencies
	for _, table := range []string{"post_reports", "thread_stars", "posts", "threads", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

// seedUsers creates count users. The moderator is reused when it already
// exists, so seeding twice adds content without failing.
func (s *Seeder) seedUsers(ctx context.Context, count int, password string) ([]models.User, error) {
	if count <= 0 {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hash := string(hashed)

	users := make([]models.User, 0, count)

	var moderator models.User
	err = db.Where("email = ?", ModeratorEmail).First(&moderator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		moderator = models.User{
			Email:        ModeratorEmail,
			Username:     "moderator",
			DisplayName:  "Forum Moderator",
			PasswordHash: &hash,
			IsModerator:  true,
		}
		if err := db.Create(&moderator).Error; err != nil {
			return nil, fmt.Errorf("failed to create moderator: %w", err)
		}
	case err != nil:
		return nil, err
	}
	users = append(users, moderator)

	for len(users) < count {
		username := gofakeit.Username()
		email := gofakeit.Email()

		// Ensure unique username/email
		var taken int64
		if err := db.Model(&models.User{}).
			Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, email).
			Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, -1, 0), time.Now())
		user := models.User{
			Email:        email,
			Username:     username,
			DisplayName:  gofakeit.Name(),
			PasswordHash: &hash,
			LastActiveAt: &lastActive,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// seedThreads opens threads by random authors and adds up to
// postsPerThread replies to each. It returns every created post.
func (s *Seeder) seedThreads(ctx context.Context, users []models.User, count, postsPerThread int) ([]models.Post, int, error) {
	var posts []models.Post
	threads := 0

	for i := 0; i < count; i++ {
		author := &users[gofakeit.Number(0, len(users)-1)]
		thread, err := s.forum.CreateThread(ctx, forum.ActorFor(author), forum.CreateThreadInput{
			Title:    fakeTitle(),
			Text:     fakeText(),
			IsPinned: author.IsModerator && gofakeit.Number(1, 10) == 1,
		})
		if err != nil {
			return nil, 0, err
		}
		threads++
		if thread.LatestPost != nil {
			posts = append(posts, *thread.LatestPost)
		}

		replies := gofakeit.Number(0, postsPerThread)
		for j := 0; j < replies; j++ {
			replier := &users[gofakeit.Number(0, len(users)-1)]
			post, err := s.forum.CreatePost(ctx, forum.ActorFor(replier), thread.ID, fakeText())
			if err != nil {
				return nil, 0, err
			}
			posts = append(posts, *post)
		}
	}
	return posts, threads, nil
}

// seedReports files up to count reports from non-moderators on random
// posts. Duplicate picks are skipped.
func (s *Seeder) seedReports(ctx context.Context, users []models.User, posts []models.Post, count int) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	reporters := make([]*models.User, 0, len(users))
	for i := range users {
		if !users[i].IsModerator {
			reporters = append(reporters, &users[i])
		}
	}
	if len(reporters) == 0 {
		return 0, nil
	}

	created := 0
	for attempt := 0; created < count && attempt < count*4; attempt++ {
		reporter := reporters[gofakeit.Number(0, len(reporters)-1)]
		post := posts[gofakeit.Number(0, len(posts)-1)]
		reason := models.ReportReasons[gofakeit.Number(0, len(models.ReportReasons)-1)]

		_, err := s.forum.ReportPost(ctx, forum.ActorFor(reporter), post.ID, forum.ReportInput{
			Reason: reason,
			Notes:  gofakeit.HipsterSentence(),
		})
		if errors.Is(err, forum.ErrAlreadyReported) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func fakeTitle() string {
	title := strings.TrimSuffix(gofakeit.HipsterSentence(), ".")
	if len(title) > models.MaxTitleLength {
		title = title[:models.MaxTitleLength]
	}
	return title
}

func fakeText() string {
	paragraphs := gofakeit.Number(1, 3)
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		b.WriteString("<p>")
		b.WriteString(gofakeit.HipsterSentence())
		b.WriteString("</p>")
	}
	return b.String()
}
