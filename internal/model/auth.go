package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims issued by the identity provider for an end user
type UserClaims struct {
	UserID      string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// DevTokenResponse is printed by the seed command for local testing
type DevTokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
