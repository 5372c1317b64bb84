package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are JWT claims for the embedding host application
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// LearnerClaims are JWT claims for a learner running the player
type LearnerClaims struct {
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for host login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token  string `json:"token"`
	HostID string `json:"hostId"`
}

// LearnerTokenRequest asks for a learner-scoped token
type LearnerTokenRequest struct {
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
}

// LearnerTokenResponse carries the minted learner token
type LearnerTokenResponse struct {
	Token     string `json:"token"`
	StudentID string `json:"studentId"`
}
