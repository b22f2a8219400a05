package auth

import (
	"philcali.me/groceries/internal/data"
)

type GoogleLoginInput struct {
	Credential string `json:"credential"`
}

type VerifyInput struct {
	Token string `json:"token"`
}

type User struct {
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Picture *string `json:"picture,omitempty"`
}

func NewUser(user data.UserDTO) User {
	return User{
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type VerifyResponse struct {
	User User `json:"user"`
}
