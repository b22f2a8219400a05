package data

import (
	"context"
	"time"
)

type UserDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	Email      string    `dynamodbav:"email"`
	Name       string    `dynamodbav:"name"`
	Picture    *string   `dynamodbav:"picture"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

type UserInputDTO struct {
	Name    *string `dynamodbav:"name"`
	Picture *string `dynamodbav:"picture"`
}

type UserRepository interface {
	Get(ctx context.Context, email string) (UserDTO, error)
	// Upsert creates the user on first login and refreshes the profile on
	// subsequent ones. A nil picture leaves the stored one untouched.
	Upsert(ctx context.Context, email string, input UserInputDTO) (UserDTO, error)
}
