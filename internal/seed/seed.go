package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counts reports how many rows a seeding step inserted.
type Counts struct {
	Users   int
	Posts   int
	Follows int
	Likes   int
}

func (c Counts) String() string {
	return fmt.Sprintf("%d users, %d posts, %d follows, %d likes", c.Users, c.Posts, c.Follows, c.Likes)
}

// Seeder writes seed data. Every step is idempotent: rerunning it inserts nothing new.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a seeder with a time-seeded faker.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(time.Now().UnixNano()), now: time.Now}
}

// NewSeederWithSeed creates a seeder whose generated data is reproducible.
func NewSeederWithSeed(db *gorm.DB, seed int64) *Seeder {
	s := NewSeeder(db)
	s.faker = gofakeit.New(seed)
	return s
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{&models.Like{}, &models.SavedPost{}, &models.Follow{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// ApplyFixtures inserts fx. Users already present are left untouched, as are their posts
// when a post with the same text exists.
func (s *Seeder) ApplyFixtures(ctx context.Context, fx *Fixtures) (Counts, error) {
	var counts Counts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Posts are spaced a minute apart so the feed order follows the fixture order.
		at := s.now().Add(-time.Duration(countPosts(fx)) * time.Minute)

		for _, u := range fx.Users {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(u.model())
			if res.Error != nil {
				return fmt.Errorf("create user %s: %w", u.ID, res.Error)
			}
			counts.Users += int(res.RowsAffected)

			for _, desc := range u.Posts {
				at = at.Add(time.Minute)
				var existing int64
				if err := tx.Model(&models.Post{}).
					Where(map[string]interface{}{"user_id": u.ID, "desc": desc}).
					Count(&existing).Error; err != nil {
					return fmt.Errorf("check post for %s: %w", u.ID, err)
				}
				if existing > 0 {
					continue
				}
				if err := tx.Create(&models.Post{UserID: u.ID, Desc: desc, CreatedAt: at, UpdatedAt: at}).Error; err != nil {
					return fmt.Errorf("create post for %s: %w", u.ID, err)
				}
				counts.Posts++
			}
		}

		for _, f := range fx.Follows {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Follow{FollowerID: f.Follower, FollowingID: f.Following})
			if res.Error != nil {
				return fmt.Errorf("create follow %s -> %s: %w", f.Follower, f.Following, res.Error)
			}
			counts.Follows += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	log.Printf("✓ Fixtures applied: %s", counts)
	return counts, nil
}

func countPosts(fx *Fixtures) int {
	n := 0
	for _, u := range fx.Users {
		n += len(u.Posts)
	}
	return n
}

// SeedFans generates numUsers extra fans with up to postsPerUser posts each. Each new fan
// follows and likes a few random members of the existing community.
func (s *Seeder) SeedFans(ctx context.Context, numUsers, postsPerUser int) (Counts, error) {
	var counts Counts
	if numUsers <= 0 {
		return counts, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingIDs []string
		if err := tx.Model(&models.User{}).Pluck("id", &existingIDs).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("parent_post_id IS NULL").Pluck("id", &postIDs).Error; err != nil {
			return fmt.Errorf("list posts: %w", err)
		}

		for i := 0; i < numUsers; i++ {
			user := s.fakeUser()
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
			if res.Error != nil {
				return fmt.Errorf("create fan: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			counts.Users++

			for n := s.faker.Number(0, postsPerUser); n > 0; n-- {
				post := &models.Post{UserID: user.ID, Desc: s.fakePostText()}
				if err := tx.Create(post).Error; err != nil {
					return fmt.Errorf("create post for %s: %w", user.ID, err)
				}
				postIDs = append(postIDs, post.ID)
				counts.Posts++
			}

			for _, target := range pick(s.faker, existingIDs, 3) {
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.Follow{FollowerID: user.ID, FollowingID: target})
				if res.Error != nil {
					return fmt.Errorf("create follow: %w", res.Error)
				}
				counts.Follows += int(res.RowsAffected)
			}
			for _, postID := range pick(s.faker, postIDs, 5) {
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.Like{UserID: user.ID, PostID: postID})
				if res.Error != nil {
					return fmt.Errorf("create like: %w", res.Error)
				}
				counts.Likes += int(res.RowsAffected)
			}
			existingIDs = append(existingIDs, user.ID)
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	log.Printf("✓ Generated fans: %s", counts)
	return counts, nil
}

var heroes = []string{
	"Iron Man", "Spider-Man", "Magik", "Hulk", "Loki", "Scarlet Witch", "Doctor Strange",
	"Peni Parker", "Storm", "Groot", "Rocket Raccoon", "Mantis", "Star-Lord", "Venom",
}

func (s *Seeder) fakeUser() *models.User {
	f := s.faker
	id := "user_fake_" + strings.ReplaceAll(f.UUID(), "-", "")[:16]
	role := []models.Role{models.RoleDuelist, models.RoleVanguard, models.RoleStrategist}[f.Number(0, 2)]
	hero := heroes[f.Number(0, len(heroes)-1)]

	return &models.User{
		ID:          id,
		Email:       id + "@example.com",
		Username:    strings.ReplaceAll(hero, " ", "") + "Fan" + fmt.Sprint(f.Number(100, 99999)),
		DisplayName: f.FirstName() + " " + f.LastName(),
		Bio:         truncate(hero+" main. "+f.Sentence(8), 160),
		Location:    f.City(),
		Role:        &role,
		Rank:        models.Ranks[f.Number(0, len(models.Ranks)-1)],
	}
}

func (s *Seeder) fakePostText() string {
	hero := heroes[s.faker.Number(0, len(heroes)-1)]
	return truncate(hero+": "+s.faker.Sentence(10), models.MaxPostLength)
}

// pick returns up to max distinct elements of items.
func pick[T comparable](f *gofakeit.Faker, items []T, max int) []T {
	if len(items) == 0 {
		return nil
	}
	out := make([]T, 0, max)
	seen := make(map[T]bool, max)
	for i := 0; i < max; i++ {
		item := items[f.Number(0, len(items)-1)]
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
