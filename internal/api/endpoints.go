package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FetchFeed fetches one page of the home feed. Pages are 1-based.
func (c *Client) FetchFeed(ctx context.Context, page int) (FeedPage, error) {
	var out FeedPage
	_, err := c.call(ctx, http.MethodGet, fmt.Sprintf("/post?page=%d", page), nil, &out)
	return out, err
}

// FetchUserPosts fetches one page of another user's posts. An empty page
// means there is nothing more.
func (c *Client) FetchUserPosts(ctx context.Context, userID string, page int) ([]Post, error) {
	var out []Post
	_, err := c.call(ctx, http.MethodGet, fmt.Sprintf("/post/user/%s?page=%d", url.PathEscape(userID), page), nil, &out)
	return out, err
}

// FetchMyPosts fetches one page of the signed-in user's posts.
func (c *Client) FetchMyPosts(ctx context.Context, page int) ([]Post, error) {
	var out []Post
	_, err := c.call(ctx, http.MethodGet, fmt.Sprintf("/post/mine?page=%d", page), nil, &out)
	return out, err
}

// DeletePost deletes one of the signed-in user's posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/post/"+url.PathEscape(postID), nil, nil)
	return err
}

// ToggleLike flips the like on a post and returns the server's resulting
// state with its message.
func (c *Client) ToggleLike(ctx context.Context, postID string) (bool, string, error) {
	return c.toggle(ctx, "/like/"+url.PathEscape(postID))
}

// ToggleBookmark flips the bookmark on a post.
func (c *Client) ToggleBookmark(ctx context.Context, postID string) (bool, string, error) {
	return c.toggle(ctx, "/bookmark/"+url.PathEscape(postID))
}

// ToggleFollow flips whether the signed-in user follows userID.
func (c *Client) ToggleFollow(ctx context.Context, userID string) (bool, string, error) {
	return c.toggle(ctx, "/follow/"+url.PathEscape(userID))
}

func (c *Client) toggle(ctx context.Context, path string) (bool, string, error) {
	var state bool
	msg, err := c.call(ctx, http.MethodPost, path, nil, &state)
	return state, msg, err
}

// CheckUsername asks the server to normalise a candidate username. The
// candidate is available when the normalised form equals it.
func (c *Client) CheckUsername(ctx context.Context, username string) (string, error) {
	var normalized string
	_, err := c.call(ctx, http.MethodPost, "/user/username", UsernameRequest{Username: username}, &normalized)
	return normalized, err
}

// Signup starts a registration and returns the pending identity handle the
// code verification must reference.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	var pendingID string
	_, err := c.call(ctx, http.MethodPost, "/user/signup", req, &pendingID)
	return pendingID, err
}

// VerifyOTP completes a registration with the emailed code.
func (c *Client) VerifyOTP(ctx context.Context, pendingID, code string) (User, error) {
	var user User
	_, err := c.call(ctx, http.MethodPost, "/user/verify-otp/"+url.PathEscape(pendingID), VerifyRequest{OTP: code}, &user)
	return user, err
}

// ResendOTP re-sends the registration code for pendingID.
func (c *Client) ResendOTP(ctx context.Context, pendingID string) error {
	_, err := c.call(ctx, http.MethodPost, "/user/resend-otp/"+url.PathEscape(pendingID), nil, nil)
	return err
}

// ForgotPassword dispatches a recovery code to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.call(ctx, http.MethodPost, "/user/forgot-password", ForgotPasswordRequest{Email: email}, nil)
}

// ChangePassword completes a recovery with the emailed code.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	_, err := c.call(ctx, http.MethodPost, "/user/change-password", req, nil)
	return err
}

// Login signs in and stores the session cookie on the client.
func (c *Client) Login(ctx context.Context, req LoginRequest) (User, error) {
	var user User
	_, err := c.call(ctx, http.MethodPost, "/user/login", req, &user)
	return user, err
}

// CurrentUser returns the user the session cookie belongs to. A conflict
// error with status 401 means nobody is signed in.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	_, err := c.call(ctx, http.MethodGet, "/user", nil, &user)
	return user, err
}

// UpdateProfile saves the signed-in user's profile and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (User, error) {
	var user User
	_, err := c.call(ctx, http.MethodPatch, "/user/update", req, &user)
	return user, err
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/user/logout", nil, nil)
	return err
}
