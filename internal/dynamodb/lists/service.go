package lists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/dynamodb/items"
	"philcali.me/groceries/internal/dynamodb/services"
	"philcali.me/groceries/internal/exceptions"
)

const RESOURCE_NAME = "ShoppingList"

// TransactWriteItems accepts at most this many actions per call.
const MAX_TRANSACTION_SIZE = 100

// Active index rows read before giving up on finding a current list.
const CURRENT_CANDIDATES = 5

type ShoppingListDynamoDBService struct {
	DynamoDB  services.DynamoDBClient
	TableName string
	IndexName string
	repo      *services.RepositoryDynamoDBService[data.ShoppingListDTO, data.ListType]
}

func NewShoppingListService(tableName string, indexName string, client services.DynamoDBClient) *ShoppingListDynamoDBService {
	return &ShoppingListDynamoDBService{
		DynamoDB:  client,
		TableName: tableName,
		IndexName: indexName,
		repo: &services.RepositoryDynamoDBService[data.ShoppingListDTO, data.ListType]{
			DynamoDB:  client,
			TableName: tableName,
			Name:      RESOURCE_NAME,
			Shim: func(pk, sk string) data.ShoppingListDTO {
				return data.ShoppingListDTO{PK: pk, SK: sk}
			},
			GetSK: func(sld data.ShoppingListDTO) string {
				return sld.SK
			},
			OnCreate: newActiveList,
		},
	}
}

func newActiveList(listType data.ListType, createTime time.Time, pk string, sk string) data.ShoppingListDTO {
	owner := strings.TrimSuffix(pk, ":"+RESOURCE_NAME)
	return data.ShoppingListDTO{
		PK:            pk,
		SK:            sk,
		FirstIndex:    FirstIndex(owner, listType, data.STATUS_ACTIVE),
		FirstIndexKey: data.SortKeyTime(createTime),
		Owner:         owner,
		Type:          listType,
		Status:        data.STATUS_ACTIVE,
		CreateTime:    createTime,
		UpdateTime:    createTime,
	}
}

// FirstIndex partitions lists on GS1 by owner, type and status so that the
// current list and the finalized history are both single key queries.
func FirstIndex(owner string, listType data.ListType, status data.ListStatus) string {
	return fmt.Sprintf("%s:%s:%s:%s", owner, RESOURCE_NAME, listType, status)
}

func (ls *ShoppingListDynamoDBService) Get(ctx context.Context, owner string, listId string) (data.ShoppingListDTO, error) {
	return ls.repo.Get(ctx, data.NormalizeEmail(owner), listId)
}

func (ls *ShoppingListDynamoDBService) Create(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	return ls.repo.Create(ctx, data.NormalizeEmail(owner), listType)
}

// Current reads GS1 newest first and confirms each candidate against the
// base table, since the index may still list a list that was just finalized.
func (ls *ShoppingListDynamoDBService) Current(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	owner = data.NormalizeEmail(owner)
	keyEx := expression.Key("GS1-PK").Equal(expression.Value(FirstIndex(owner, listType, data.STATUS_ACTIVE)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	output, err := ls.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(ls.TableName),
		IndexName:                 aws.String(ls.IndexName),
		Limit:                     aws.Int32(CURRENT_CANDIDATES),
		ScanIndexForward:          aws.Bool(false),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	var candidates []data.ShoppingListDTO
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &candidates); err != nil {
		return data.ShoppingListDTO{}, err
	}
	for _, candidate := range candidates {
		list, err := ls.repo.Get(ctx, owner, candidate.SK)
		if exceptions.IsNotFound(err) {
			continue
		}
		if err != nil {
			return data.ShoppingListDTO{}, err
		}
		if list.Status == data.STATUS_ACTIVE && list.Type == listType {
			return list, nil
		}
	}
	return data.ShoppingListDTO{}, exceptions.NotFound(strings.ToLower(RESOURCE_NAME), string(listType))
}

func (ls *ShoppingListDynamoDBService) Finalized(ctx context.Context, owner string, query data.FinalizedQuery) ([]data.ShoppingListDTO, error) {
	keyEx := expression.Key("GS1-PK").Equal(expression.Value(FirstIndex(data.NormalizeEmail(owner), data.ACTIVE, data.STATUS_FINALIZED))).
		And(expression.Key("GS1-SK").Between(expression.Value(data.SortKeyTime(query.From)), expression.Value(data.SortKeyTime(query.To))))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, err
	}
	limit := query.GetLimit()
	paginator := dynamodb.NewQueryPaginator(ls.DynamoDB, &dynamodb.QueryInput{
		TableName:                 aws.String(ls.TableName),
		IndexName:                 aws.String(ls.IndexName),
		Limit:                     aws.Int32(int32(limit)),
		ScanIndexForward:          aws.Bool(false),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	results := make([]data.ShoppingListDTO, 0)
	for paginator.HasMorePages() && len(results) < limit {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []data.ShoppingListDTO
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, err
		}
		results = append(results, page...)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Finalize closes the list and opens its replacement in one transaction.
// Items that do not fit in the transaction are marked purchased beforehand.
func (ls *ShoppingListDynamoDBService) Finalize(ctx context.Context, list data.ShoppingListDTO, listItems []data.ShoppingItemDTO, totalValue *float64) (data.ShoppingListDTO, error) {
	now := time.Now()
	replacementId, err := services.NewItemId()
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	replacement := newActiveList(data.ACTIVE, now, list.PK, replacementId)

	capacity := MAX_TRANSACTION_SIZE - 2
	transacted := listItems
	if len(listItems) > capacity {
		for _, item := range listItems[capacity:] {
			update, err := ls.purchaseItem(list, item, now)
			if err != nil {
				return data.ShoppingListDTO{}, err
			}
			_, err = ls.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 update.TableName,
				Key:                       update.Key,
				UpdateExpression:          update.UpdateExpression,
				ConditionExpression:       update.ConditionExpression,
				ExpressionAttributeNames:  update.ExpressionAttributeNames,
				ExpressionAttributeValues: update.ExpressionAttributeValues,
			})
			if err != nil && !services.IsConditionFailed(err) {
				return data.ShoppingListDTO{}, err
			}
		}
		transacted = listItems[:capacity]
	}

	actions := make([]types.TransactWriteItem, 0, len(transacted)+2)
	closeList, err := ls.closeList(list, now, totalValue)
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	actions = append(actions, types.TransactWriteItem{Update: closeList})
	for _, item := range transacted {
		update, err := ls.purchaseItem(list, item, now)
		if err != nil {
			return data.ShoppingListDTO{}, err
		}
		actions = append(actions, types.TransactWriteItem{Update: update})
	}
	openList, err := ls.putList(replacement)
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	actions = append(actions, types.TransactWriteItem{Put: openList})

	_, err = ls.DynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: actions,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return data.ShoppingListDTO{}, exceptions.Conflict(strings.ToLower(RESOURCE_NAME), list.SK)
				}
			}
		}
		return data.ShoppingListDTO{}, err
	}
	return replacement, nil
}

func (ls *ShoppingListDynamoDBService) closeList(list data.ShoppingListDTO, now time.Time, totalValue *float64) (*types.Update, error) {
	key, err := services.Key(list.PK, list.SK)
	if err != nil {
		return nil, err
	}
	update := expression.Set(expression.Name("status"), expression.Value(data.STATUS_FINALIZED)).
		Set(expression.Name("finalizeTime"), expression.Value(now)).
		Set(expression.Name("updateTime"), expression.Value(now)).
		Set(expression.Name("GS1-PK"), expression.Value(FirstIndex(list.Owner, list.Type, data.STATUS_FINALIZED))).
		Set(expression.Name("GS1-SK"), expression.Value(data.SortKeyTime(now)))
	if totalValue != nil {
		update = update.Set(expression.Name("totalValue"), expression.Value(*totalValue))
	}
	condition := expression.Name("status").Equal(expression.Value(data.STATUS_ACTIVE))
	expr, err := expression.NewBuilder().WithCondition(condition).WithUpdate(update).Build()
	if err != nil {
		return nil, err
	}
	return &types.Update{
		TableName:                 aws.String(ls.TableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func (ls *ShoppingListDynamoDBService) purchaseItem(list data.ShoppingListDTO, item data.ShoppingItemDTO, now time.Time) (*types.Update, error) {
	key, err := services.Key(items.PrimaryKey(list.SK), item.SK)
	if err != nil {
		return nil, err
	}
	update := expression.Set(expression.Name("purchased"), expression.Value(true)).
		Set(expression.Name("updateTime"), expression.Value(now))
	condition := expression.Name("PK").AttributeExists()
	expr, err := expression.NewBuilder().WithCondition(condition).WithUpdate(update).Build()
	if err != nil {
		return nil, err
	}
	return &types.Update{
		TableName:                 aws.String(ls.TableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func (ls *ShoppingListDynamoDBService) putList(list data.ShoppingListDTO) (*types.Put, error) {
	item, err := attributevalue.MarshalMap(list)
	if err != nil {
		return nil, err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return nil, err
	}
	return &types.Put{
		TableName:                aws.String(ls.TableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	}, nil
}
