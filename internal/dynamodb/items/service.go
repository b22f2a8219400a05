package items

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/dynamodb/services"
)

const RESOURCE_NAME = "ShoppingItem"

type ShoppingItemDynamoDBService struct {
	repo *services.RepositoryDynamoDBService[data.ShoppingItemDTO, data.ShoppingItemInputDTO]
}

func NewShoppingItemService(tableName string, client services.DynamoDBClient) *ShoppingItemDynamoDBService {
	return &ShoppingItemDynamoDBService{
		repo: &services.RepositoryDynamoDBService[data.ShoppingItemDTO, data.ShoppingItemInputDTO]{
			DynamoDB:  client,
			TableName: tableName,
			Name:      RESOURCE_NAME,
			Shim: func(pk, sk string) data.ShoppingItemDTO {
				return data.ShoppingItemDTO{PK: pk, SK: sk}
			},
			GetSK: func(sid data.ShoppingItemDTO) string {
				return sid.SK
			},
			OnCreate: func(input data.ShoppingItemInputDTO, createTime time.Time, pk, sk string) data.ShoppingItemDTO {
				item := data.ShoppingItemDTO{
					PK:         pk,
					SK:         sk,
					ListId:     strings.TrimSuffix(pk, ":"+RESOURCE_NAME),
					Quantity:   1,
					UnitPrice:  input.UnitPrice,
					CreateTime: createTime,
					UpdateTime: createTime,
				}
				if input.Name != nil {
					item.Name = strings.TrimSpace(*input.Name)
					item.NameKey = data.NormalizeName(*input.Name)
				}
				if input.Quantity != nil {
					item.Quantity = *input.Quantity
				}
				if input.Purchased != nil {
					item.Purchased = *input.Purchased
				}
				if input.Included != nil {
					item.Included = *input.Included
				}
				return item
			},
			OnUpdate: func(input data.ShoppingItemInputDTO, ub expression.UpdateBuilder) expression.UpdateBuilder {
				if input.Name != nil {
					ub = ub.Set(expression.Name("name"), expression.Value(strings.TrimSpace(*input.Name)))
					ub = ub.Set(expression.Name("nameKey"), expression.Value(data.NormalizeName(*input.Name)))
				}
				if input.Quantity != nil {
					ub = ub.Set(expression.Name("quantity"), expression.Value(*input.Quantity))
				}
				if input.ClearUnitPrice {
					ub = ub.Remove(expression.Name("unitPrice"))
				} else if input.UnitPrice != nil {
					ub = ub.Set(expression.Name("unitPrice"), expression.Value(*input.UnitPrice))
				}
				if input.Purchased != nil {
					ub = ub.Set(expression.Name("purchased"), expression.Value(*input.Purchased))
				}
				if input.Included != nil {
					ub = ub.Set(expression.Name("included"), expression.Value(*input.Included))
				}
				return ub
			},
		},
	}
}

// PrimaryKey is the partition holding every item of a list.
func PrimaryKey(listId string) string {
	return services.PrimaryKey(listId, RESOURCE_NAME)
}

func (is *ShoppingItemDynamoDBService) List(ctx context.Context, listId string) ([]data.ShoppingItemDTO, error) {
	return is.repo.List(ctx, listId)
}

func (is *ShoppingItemDynamoDBService) Get(ctx context.Context, listId string, itemId string) (data.ShoppingItemDTO, error) {
	return is.repo.Get(ctx, listId, itemId)
}

func (is *ShoppingItemDynamoDBService) Create(ctx context.Context, listId string, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	return is.repo.Create(ctx, listId, input)
}

func (is *ShoppingItemDynamoDBService) CreateAll(ctx context.Context, listId string, inputs []data.ShoppingItemInputDTO) ([]data.ShoppingItemDTO, error) {
	return is.repo.BatchCreate(ctx, listId, inputs)
}

func (is *ShoppingItemDynamoDBService) Update(ctx context.Context, listId string, itemId string, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	return is.repo.Update(ctx, listId, itemId, input)
}

func (is *ShoppingItemDynamoDBService) Delete(ctx context.Context, listId string, itemId string) error {
	return is.repo.Delete(ctx, listId, itemId)
}

func (is *ShoppingItemDynamoDBService) DeleteAll(ctx context.Context, listId string) error {
	return is.repo.DeleteAll(ctx, listId)
}

func (is *ShoppingItemDynamoDBService) Count(ctx context.Context, listId string) (int, error) {
	return is.repo.Count(ctx, listId)
}
