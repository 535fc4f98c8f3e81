package types

import (
	"context"
	"time"
)

// User is created on first contact and upserted on every update so the
// display fields track the chat profile. ChatID is the stable identity.
type User struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "there"
}

type UpsertUserParams struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
}

type UserStore interface {
	UpsertUser(ctx context.Context, params UpsertUserParams) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}
