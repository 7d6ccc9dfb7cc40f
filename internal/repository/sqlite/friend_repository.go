package sqlite

import (
	"context"
	"database/sql"

	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/repository"
)

type friendRepository struct {
	db *sql.DB
}

// NewFriendRepository creates a new FriendRepository implementation
func NewFriendRepository(db *sql.DB) repository.FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) List(ctx context.Context) ([]models.Friend, error) {
	log := logger.FromContext(ctx).WithPrefix("friend_repo")

	query, args, err := sqlBuilder.Select("id", "name", "added_at").From("friends").
		OrderBy("added_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list friends: %v", err)
		return nil, err
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.ID, &f.Name, &f.AddedAt); err != nil {
			log.Error("failed to scan friend row: %v", err)
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (r *friendRepository) Add(ctx context.Context, friend models.Friend) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("friend_repo")

	query, args, err := sqlBuilder.Insert("friends").
		Options("OR IGNORE").
		Columns("id", "name", "added_at").
		Values(friend.ID, friend.Name, friend.AddedAt.UTC()).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to add friend %s: %v", friend.ID, err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	log.Debug("add friend %s: rows=%d", friend.ID, n)
	return n > 0, nil
}
