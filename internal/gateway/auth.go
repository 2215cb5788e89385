package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"delivery/internal/domain"
)

// AuthClient verifies bearer tokens against the auth service.
type AuthClient struct {
	baseURL string
	client  *http.Client
}

// NewAuthClient creates a new AuthClient.
func NewAuthClient(baseURL string, client *http.Client) *AuthClient {
	return &AuthClient{baseURL: baseURL, client: client}
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type verifyTokenResponse struct {
	User struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Role    string `json:"role"`
	} `json:"user"`
}

// VerifyToken resolves a token to the caller's identity.
func (c *AuthClient) VerifyToken(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, ErrUnauthenticated
	}

	var resp verifyTokenResponse
	err := doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, "/auth/verify-token"), verifyTokenRequest{Token: token}, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden || se.Code == http.StatusBadRequest {
				return domain.Identity{}, ErrUnauthenticated
			}
			return domain.Identity{}, fmt.Errorf("%w: verify token: %v", ErrUpstreamUnavailable, se)
		}
		return domain.Identity{}, err
	}

	id := resp.User.ID
	if id == "" {
		id = resp.User.MongoID
	}
	if id == "" {
		return domain.Identity{}, ErrUnauthenticated
	}

	return domain.Identity{ID: id, Role: domain.Role(resp.User.Role)}, nil
}
