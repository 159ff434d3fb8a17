package domain

import "time"

// DefaultTimezone is assigned to users that register without one.
const DefaultTimezone = "America/Sao_Paulo"

// User models an account holder.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Timezone     string    `json:"timezone"`
	WeightKg     *float64  `json:"weightKg"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the projection of User that may leave the process.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	WeightKg  *float64  `json:"weightKg"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips everything that must never be serialized.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Timezone:  u.Timezone,
		WeightKg:  u.WeightKg,
		CreatedAt: u.CreatedAt,
	}
}
