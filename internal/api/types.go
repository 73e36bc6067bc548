package api

import (
	"encoding/json"
	"time"
)

// envelope is the wrapper every endpoint responds with.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// User is an account as returned by login, verification and profile calls.
type User struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	AccountType    string `json:"account_type,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePic     string `json:"profile_pic,omitempty"`
	CoverPic       string `json:"cover_pic,omitempty"`
	DOB            string `json:"dob,omitempty"`
	Verified       bool   `json:"verified"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
}

// Author is the user reference embedded in a post.
type Author struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

// Image is one attachment of a post.
type Image struct {
	URL string `json:"image_url"`
}

// Post is a feed entry as the API returns it.
type Post struct {
	CreatedAt    time.Time `json:"createdAt"`
	Author       Author    `json:"user_id"`
	ID           string    `json:"_id"`
	Description  string    `json:"description"`
	Type         string    `json:"type,omitempty"`
	PostType     string    `json:"post_type,omitempty"`
	Images       []Image   `json:"images"`
	Hashtags     []string  `json:"hashtags,omitempty"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	Liked        bool      `json:"liked"`
	Bookmarked   bool      `json:"bookmarked"`
}

// FeedPage is the home feed page payload.
type FeedPage struct {
	Items   []Post `json:"items"`
	HasNext bool   `json:"hasNext"`
}

// SignupRequest carries the registration fields collected by the wizard.
type SignupRequest struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DOB         string `json:"dob"`
}

// LoginRequest carries credentials for POST /user/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UsernameRequest is the body of POST /user/username.
type UsernameRequest struct {
	Username string `json:"username"`
}

// VerifyRequest is the body of POST /user/verify-otp/{pendingId}.
type VerifyRequest struct {
	OTP string `json:"otp"`
}

// ForgotPasswordRequest is the body of POST /user/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is the body of POST /user/change-password.
type ChangePasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the body of PATCH /user/update. Picture uploads
// are not sent.
type UpdateProfileRequest struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	DOB         string `json:"dob"`
	Bio         string `json:"bio"`
	AccountType string `json:"account_type"`
}

// Response builds the envelope a server sends; used by the fake backend.
func Response(data any, message string) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Data: raw, Message: message})
}
