package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

// SessionWriter is the part of the session the user service updates.
type SessionWriter interface {
	SetToken(token, email string) error
	Clear() error
}

type UserService struct {
	client  *api.Client
	session SessionWriter
}

func NewUserService(client *api.Client, session SessionWriter) *UserService {
	return &UserService{client: client, session: session}
}

func (s *UserService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var raw json.RawMessage
	if err := s.client.Post(ctx, "/users", reg, &raw); err != nil {
		return nil, err
	}

	var user models.User
	found, err := api.DecodeObject(raw, "user", &user)
	if err != nil {
		return nil, err
	}
	if !found {
		user = models.User{Username: reg.Username, Lastname: reg.Lastname, Birthdate: reg.Birthdate, Email: reg.Email}
	}
	return &user, nil
}

// Login authenticates and, when the backend returns a token, persists it in
// the session.
func (s *UserService) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := s.client.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}

	if resp.Token != "" {
		if err := s.session.SetToken(resp.Token, creds.Email); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}

	return &resp, nil
}

func (s *UserService) Profile(ctx context.Context) (*models.User, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, "/users/profile", &raw); err != nil {
		return nil, err
	}

	var user models.User
	if len(raw) > 0 {
		if found, err := api.DecodeObject(raw, "user", &user); err != nil {
			return nil, err
		} else if !found {
			if err := json.Unmarshal(raw, &user); err != nil {
				return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
			}
		}
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var raw json.RawMessage
	if err := s.client.Put(ctx, "/users/profile", update, &raw); err != nil {
		return nil, err
	}

	var user models.User
	found, err := api.DecodeObject(raw, "user", &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *UserService) Logout() error {
	return s.session.Clear()
}
