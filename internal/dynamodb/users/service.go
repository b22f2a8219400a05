package users

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/dynamodb/services"
	"philcali.me/groceries/internal/exceptions"
)

// Site Wide Users
const GLOBAL_ACCOUNT = "Global"

type UserDynamoDBService struct {
	repo *services.RepositoryDynamoDBService[data.UserDTO, data.UserInputDTO]
}

func NewUserService(tableName string, client services.DynamoDBClient) data.UserRepository {
	return &UserDynamoDBService{
		repo: &services.RepositoryDynamoDBService[data.UserDTO, data.UserInputDTO]{
			DynamoDB:  client,
			TableName: tableName,
			Name:      "User",
			Shim: func(pk, sk string) data.UserDTO {
				return data.UserDTO{PK: pk, SK: sk}
			},
			GetSK: func(ud data.UserDTO) string {
				return ud.SK
			},
			OnCreate: func(uid data.UserInputDTO, createTime time.Time, pk, sk string) data.UserDTO {
				return data.UserDTO{
					PK:         pk,
					SK:         sk,
					Email:      sk,
					Name:       *uid.Name,
					Picture:    uid.Picture,
					CreateTime: createTime,
					UpdateTime: createTime,
				}
			},
			OnUpdate: func(uid data.UserInputDTO, ub expression.UpdateBuilder) expression.UpdateBuilder {
				if uid.Name != nil {
					ub = ub.Set(expression.Name("name"), expression.Value(uid.Name))
				}
				if uid.Picture != nil {
					ub = ub.Set(expression.Name("picture"), expression.Value(uid.Picture))
				}
				return ub
			},
		},
	}
}

func (us *UserDynamoDBService) Get(ctx context.Context, email string) (data.UserDTO, error) {
	return us.repo.Get(ctx, GLOBAL_ACCOUNT, data.NormalizeEmail(email))
}

func (us *UserDynamoDBService) Upsert(ctx context.Context, email string, input data.UserInputDTO) (data.UserDTO, error) {
	userId := data.NormalizeEmail(email)
	user, err := us.repo.CreateWithItemId(ctx, GLOBAL_ACCOUNT, input, userId)
	if exceptions.IsConflict(err) {
		return us.repo.Update(ctx, GLOBAL_ACCOUNT, userId, input)
	}
	return user, err
}
