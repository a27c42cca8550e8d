package user

import (
	"time"

	"medious/internal/dbmongo"
)

type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UserResponse is the caller's own account.
type UserResponse struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	AuthProvider string            `json:"auth_provider"`
	Avatar       *string           `json:"avatar"`
	Bio          *string           `json:"bio"`
	Location     *LocationResponse `json:"location,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserSummary is what other users get to see in lists.
type UserSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}

type PublicProfileResponse struct {
	UserSummary
	CreatedAt      time.Time `json:"created_at"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
}

type NearbyUserResponse struct {
	UserSummary
	DistanceKm float64 `json:"distance_km"`
}

func NewUserResponse(u *dbmongo.User) UserResponse {
	resp := UserResponse{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		Name:         u.Name,
		AuthProvider: u.AuthProvider,
		Avatar:       u.Avatar,
		Bio:          u.Bio,
		CreatedAt:    u.CreatedAt,
	}
	if u.Location != nil {
		resp.Location = &LocationResponse{Latitude: u.Location.Lat(), Longitude: u.Location.Lng()}
	}
	return resp
}

func NewUserSummary(u *dbmongo.User) UserSummary {
	return UserSummary{ID: u.ID.Hex(), Name: u.Name, Avatar: u.Avatar, Bio: u.Bio}
}

func NewUserSummaries(users []*dbmongo.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserSummary(u))
	}
	return out
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
