// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"github.com/kvo5/marvel-madness/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || pgCode(err) == pgForeignKeyViolation
}

// postCounts selects a post row with its like, repost and reply counts.
const postCounts = "posts.*, " +
	"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, " +
	"(SELECT COUNT(*) FROM posts AS reposts WHERE reposts.repost_of_id = posts.id) AS reposts_count, " +
	"(SELECT COUNT(*) FROM posts AS replies WHERE replies.parent_post_id = posts.id) AS comments_count"

// userCounts selects a user row with follower and following counts.
const userCounts = "users.*, " +
	"(SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id) AS followers_count, " +
	"(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id) AS following_count"
