package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const userColumns = `id::text, email, password_hash, name, timezone, weight_kg::float8, created_at, updated_at`

var errUserNotFound = domain.NewError(domain.ErrNotFound, "user not found")

type UserRepository struct {
	db DBTX
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user, assigning an ID when it has none, and fills in the
// server-side timestamps.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)

	query :=
		`INSERT INTO users (id, email, password_hash, name, timezone, weight_kg)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Timezone, user.WeightKg,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	return translate(err, errUserNotFound)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var (
		u      domain.User
		weight sql.NullFloat64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Timezone, &weight, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err, errUserNotFound)
	}
	if weight.Valid {
		w := weight.Float64
		u.WeightKg = &w
	}
	return &u, nil
}
