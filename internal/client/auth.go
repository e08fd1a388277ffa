package client

import (
	"context"
	"net/http"
)

// User is the identity returned by /auth/me.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RegisterRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisteredUser is the summary returned for a newly created account.
type RegisteredUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
}

// Register creates an account. POST /auth/register
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisteredUser, error) {
	env, err := doJSON[RegisteredUser](ctx, c, http.MethodPost, "/auth/register", nil, req)
	if err != nil {
		return RegisteredUser{}, err
	}
	return env.Data, nil
}

// Login exchanges credentials for a bearer token. POST /auth/login
//
// The token is returned to the caller, it is not stored here.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	payload := map[string]string{"email": email, "password": password}
	env, err := doJSON[LoginResult](ctx, c, http.MethodPost, "/auth/login", nil, payload)
	if err != nil {
		return LoginResult{}, err
	}
	if env.Data.AccessToken == "" {
		return LoginResult{}, &Error{Kind: ErrDecode, Status: http.StatusOK, Message: "login response missing access_token"}
	}
	return env.Data, nil
}

// Me returns the identity bound to the current bearer token. GET /auth/me
func (c *Client) Me(ctx context.Context) (User, error) {
	env, err := doJSON[User](ctx, c, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return User{}, err
	}
	if env.Data.ID == "" || env.Data.Email == "" {
		return User{}, &Error{Kind: ErrDecode, Status: http.StatusOK, Message: "identity response missing id or email"}
	}
	return env.Data, nil
}
