package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Lastname  string `json:"lastname"`
	Birthdate string `json:"birthdate"`
	Email     string `json:"email"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		MongoID   FlexibleID `json:"_id"`
		ID        FlexibleID `json:"id"`
		Username  string     `json:"username"`
		Name      string     `json:"name"`
		Lastname  string     `json:"lastname"`
		Birthdate string     `json:"birthdate"`
		Email     string     `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.ID = string(raw.MongoID)
	if u.ID == "" {
		u.ID = string(raw.ID)
	}
	u.Username = raw.Username
	if u.Username == "" {
		u.Username = raw.Name
	}
	u.Lastname = raw.Lastname
	u.Birthdate = normalizeDate(raw.Birthdate)
	u.Email = raw.Email
	return nil
}

// Age in whole years at now, from the birthdate year, matching how the
// profile screen shows it. ok is false when no birthdate is known.
func (u User) Age(now time.Time) (age int, ok bool) {
	b, err := time.Parse(DateLayout, u.Birthdate)
	if err != nil {
		return 0, false
	}
	return now.Year() - b.Year(), true
}

type Registration struct {
	Username  string `json:"username"`
	Lastname  string `json:"lastname"`
	Birthdate string `json:"birthdate"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// ProfileUpdate only carries the fields the user filled in.
type ProfileUpdate struct {
	Username  string `json:"username,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p == ProfileUpdate{}
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordReset struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse is the `{ message }` body returned by the reset endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Session is the locally persisted login state.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	Encrypted bool      `json:"encrypted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}
