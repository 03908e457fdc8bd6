package auth

import (
	"errors"
	"time"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateTokenDTO struct {
	Name      string     `json:"name" binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type UpdateProfileDTO struct {
	Name        *string `json:"name"`
	Mail        *string `json:"mail"`
	Password    *string `json:"password" binding:"omitempty,min=6"`
	OldPassword *string `json:"old_password"`
}

type CreateMaintainerDTO struct {
	Username       string `json:"username" binding:"required,min=3"`
	Password       string `json:"password" binding:"required,min=6"`
	Name           string `json:"name"`
	Mail           string `json:"mail"`
	IsAdmin        bool   `json:"is_admin"`
	SharedTerminal bool   `json:"shared_terminal"`
}

type UpdateMaintainerDTO struct {
	Name           *string `json:"name"`
	Mail           *string `json:"mail"`
	Password       *string `json:"password" binding:"omitempty,min=6"`
	IsAdmin        *bool   `json:"is_admin"`
	SharedTerminal *bool   `json:"shared_terminal"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Token     string     `json:"token"`
	ExpiredAt *time.Time `json:"expired_at"`
	CreatedAt time.Time  `json:"created_at"`
}

var (
	ErrMaintainerNotFound = errors.New("maintainer not found")
	ErrWrongPassword      = errors.New("wrong password")
	ErrUsernameTaken      = errors.New("username already taken")
)
