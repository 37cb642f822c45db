package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jengzang/geolife-loader/internal/database"
	"github.com/jengzang/geolife-loader/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// InsertBatch inserts users in one transaction; the activity id set is stored as a JSON array
func (r *UserRepository) InsertBatch(ctx context.Context, users []models.User) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO "user" (id, has_labels, activity_id) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare user insert: %w", err)
		}
		defer stmt.Close()

		for _, u := range users {
			ids := u.ActivityIDs
			if ids == nil {
				ids = []int64{}
			}
			encoded, err := json.Marshal(ids)
			if err != nil {
				return fmt.Errorf("failed to encode activity ids of user %s: %w", u.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, u.ID, u.HasLabels, string(encoded)); err != nil {
				return fmt.Errorf("failed to insert user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a single user, nil when it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, has_labels, activity_id FROM "user" WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns all users ordered by id
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, has_labels, activity_id FROM "user" ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u       models.User
		encoded string
	)
	if err := s.Scan(&u.ID, &u.HasLabels, &encoded); err != nil {
		return nil, err
	}
	u.ActivityIDs = []int64{}
	if err := json.Unmarshal([]byte(encoded), &u.ActivityIDs); err != nil {
		return nil, fmt.Errorf("failed to decode activity ids of user %s: %w", u.ID, err)
	}
	return &u, nil
}
