package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a person whose lab results are tracked under an account.
// One account owns several profiles (self, family members).
type Profile struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	AccountID   uuid.UUID  `json:"account_id" db:"account_id"`
	FullName    string     `json:"full_name" db:"full_name"`
	NameKey     string     `json:"-" db:"name_key"`
	DateOfBirth *string    `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Sex         *string    `json:"sex,omitempty" db:"sex"`
	AvatarColor string     `json:"avatar_color" db:"avatar_color"`
	IsPrimary   bool       `json:"is_primary" db:"is_primary"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
