package api

import (
	"context"
	"fmt"
	"net/http"

	"carbonsink/internal/logger"
	"carbonsink/internal/models"
)

// Login exchanges credentials for a bearer token and stores it in the session
func (c *Client) Login(ctx context.Context, s *Session, username, password string) (*models.Token, error) {
	var token models.Token
	err := c.do(ctx, nil, call{
		method: http.MethodPost,
		path:   "/auth/login",
		form: map[string]string{
			"username": username,
			"password": password,
		},
	}, &token)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("login failed: backend returned no access token")
	}

	s.SetToken(token.AccessToken)
	c.log.Info("Logged in", logger.Fields{"username": username})
	return &token, nil
}

// Register creates a backend account
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, nil, call{method: http.MethodPost, path: "/auth/register", body: req}, &user); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return &user, nil
}

// Logout clears the session
func (c *Client) Logout(s *Session) {
	s.Clear()
}
