package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/anonto42/nano-midea/client/pkg/config"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Client is the HTTP implementation of Remote, speaking the backend's JSON
// API under /api/v1 with bearer-token authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.APIBaseURL,
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Message string `json:"message"`
}

// doJSON performs one request and decodes the JSON response into out (which
// may be nil for calls whose body is irrelevant). Every request carries a
// fresh X-Request-ID for correlation with backend logs.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return networkError("build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	slog.Debug("api request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Message == "" {
			envelope.Message = fmt.Sprintf("%s %s failed", method, path)
		}
		slog.Debug("api error", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
		return errorFromStatus(resp.StatusCode, envelope.Message)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return networkError("decode response", err)
	}
	return nil
}

func (c *Client) FetchUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) FetchPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) FetchFriends(ctx context.Context) ([]models.User, error) {
	var friends []models.User
	if err := c.doJSON(ctx, http.MethodGet, "/friends", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

func (c *Client) FetchSentRequests(ctx context.Context) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	if err := c.doJSON(ctx, http.MethodGet, "/friends/requests/sent", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (c *Client) FetchReceivedRequests(ctx context.Context) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	if err := c.doJSON(ctx, http.MethodGet, "/friends/requests/pending", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (c *Client) FetchSavedPosts(ctx context.Context) ([]models.SavedPost, error) {
	var saved []models.SavedPost
	if err := c.doJSON(ctx, http.MethodGet, "/posts/saved", nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, receiverID uint) (*models.FriendRequest, error) {
	payload := map[string]uint{"receiver_id": receiverID}
	var request models.FriendRequest
	if err := c.doJSON(ctx, http.MethodPost, "/friends/request", payload, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *Client) CancelFriendRequest(ctx context.Context, requestID uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/friends/request/%d", requestID), nil, nil)
}

func (c *Client) RespondFriendRequest(ctx context.Context, requestID uint, status models.FriendRequestStatus) (*models.FriendRequest, error) {
	payload := map[string]models.FriendRequestStatus{"status": status}
	var request models.FriendRequest
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/friends/request/%d/status", requestID), payload, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *Client) Unfriend(ctx context.Context, friendID uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/friends/%d", friendID), nil, nil)
}

func (c *Client) FollowUser(ctx context.Context, userID uint) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", userID), nil, nil)
}

func (c *Client) UnfollowUser(ctx context.Context, userID uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/follow", userID), nil, nil)
}

// likersResponse is the backend's envelope for like operations.
type likersResponse struct {
	Likers []models.User `json:"likers"`
}

// savedResponse is the backend's envelope for save operations.
type savedResponse struct {
	Saved bool `json:"saved"`
}

func (c *Client) ToggleLike(ctx context.Context, postID string) ([]models.User, error) {
	var resp likersResponse
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/like/toggle", postID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Likers, nil
}

func (c *Client) ToggleSave(ctx context.Context, postID string) (bool, error) {
	var resp savedResponse
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/save/toggle", postID), nil, &resp); err != nil {
		return false, err
	}
	return resp.Saved, nil
}

func (c *Client) FetchLikers(ctx context.Context, postID string) ([]models.User, error) {
	var resp likersResponse
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/posts/%s/likes", postID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Likers, nil
}

func (c *Client) FetchComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/posts/%s/comments", postID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
