package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bishaldk/samvad/internal/session"
)

type wireUser struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	IsStaff   bool        `json:"is_staff"`
}

func (w wireUser) toUser() session.User {
	return session.User{
		ID:        w.ID.String(),
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		IsStaff:   w.IsStaff,
	}
}

// Login authenticates with email and password and installs the returned user
// and token pair into the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		User   wireUser `json:"user"`
		Tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
	}
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/login/",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.session.SetTokens(session.TokenPair{Access: resp.Tokens.Access, Refresh: resp.Tokens.Refresh})
	c.session.SetUser(resp.User.toUser())
	return nil
}

// Profile fetches the logged-in user's profile and refreshes the session
// copy.
func (c *Client) Profile(ctx context.Context) (session.User, error) {
	var resp wireUser
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/profile/", nil, &resp); err != nil {
		return session.User{}, err
	}
	u := resp.toUser()
	c.session.SetUser(u)
	return u, nil
}

// Logout invalidates the refresh token server-side and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	tokens := c.session.Tokens()
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout/",
		map[string]string{"refresh": tokens.Refresh}, nil)
	c.session.Clear()
	return err
}
