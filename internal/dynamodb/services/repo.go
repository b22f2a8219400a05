package services

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
	"github.com/google/uuid"
	"philcali.me/groceries/internal/exceptions"
)

// BatchWriteItem accepts at most this many requests per call.
const MAX_BATCH_SIZE = 25

// A batch chunk is sent at most this many times before giving up.
const MAX_BATCH_ATTEMPTS = 6

// BatchRetryDelay is the first backoff between batch attempts; it doubles on
// every retry.
var BatchRetryDelay = 50 * time.Millisecond

// DynamoDBClient is the subset of *dynamodb.Client the repositories use.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type RepositoryDynamoDBService[T interface{}, I interface{}] struct {
	DynamoDB  DynamoDBClient
	TableName string
	Name      string
	Shim      func(pk string, sk string) T
	GetSK     func(T) string
	OnCreate  func(I, time.Time, string, string) T
	OnUpdate  func(I, expression.UpdateBuilder) expression.UpdateBuilder
}

func PrimaryKey(parentId string, name string) string {
	return fmt.Sprintf("%s:%s", parentId, name)
}

func Key(pks string, sks string) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(pks)
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(sks)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"PK": pk, "SK": sk}, nil
}

// NewItemId returns a time ordered identifier so that sort keys follow
// creation order.
func NewItemId() (string, error) {
	gid, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return gid.String(), nil
}

func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (rs *RepositoryDynamoDBService[T, I]) resource() string {
	return strings.ToLower(rs.Name)
}

func (rs *RepositoryDynamoDBService[T, I]) PrimaryKey(parentId string) string {
	return PrimaryKey(parentId, rs.Name)
}

func (rs *RepositoryDynamoDBService[T, I]) queryInput(parentId string) (*dynamodb.QueryInput, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(rs.PrimaryKey(parentId)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(rs.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// List returns every record under the parent, following all result pages.
func (rs *RepositoryDynamoDBService[T, I]) List(ctx context.Context, parentId string) ([]T, error) {
	input, err := rs.queryInput(parentId)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	paginator := dynamodb.NewQueryPaginator(rs.DynamoDB, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []T
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
	}
	return items, nil
}

func (rs *RepositoryDynamoDBService[T, I]) Count(ctx context.Context, parentId string) (int, error) {
	input, err := rs.queryInput(parentId)
	if err != nil {
		return 0, err
	}
	input.Select = types.SelectCount
	count := 0
	paginator := dynamodb.NewQueryPaginator(rs.DynamoDB, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int(output.Count)
	}
	return count, nil
}

func (rs *RepositoryDynamoDBService[T, I]) Create(ctx context.Context, parentId string, input I) (T, error) {
	itemId, err := NewItemId()
	if err != nil {
		var empty T
		return empty, err
	}
	return rs.CreateWithItemId(ctx, parentId, input, itemId)
}

func (rs *RepositoryDynamoDBService[T, I]) CreateWithItemId(ctx context.Context, parentId string, input I, itemId string) (T, error) {
	now := time.Now()
	shim := rs.OnCreate(input, now, rs.PrimaryKey(parentId), itemId)
	item, err := attributevalue.MarshalMap(shim)
	if err != nil {
		return shim, err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists().And(expression.Name("SK").AttributeNotExists())).Build()
	if err != nil {
		return shim, err
	}
	_, err = rs.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                     item,
		TableName:                aws.String(rs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if IsConditionFailed(err) {
			return shim, exceptions.Conflict(rs.resource(), itemId)
		}
		return shim, err
	}
	return shim, nil
}

// BatchCreate writes all inputs under the parent without existence checks.
// Records are returned in input order.
func (rs *RepositoryDynamoDBService[T, I]) BatchCreate(ctx context.Context, parentId string, inputs []I) ([]T, error) {
	created := make([]T, 0, len(inputs))
	requests := make([]types.WriteRequest, 0, len(inputs))
	now := time.Now()
	for _, input := range inputs {
		itemId, err := NewItemId()
		if err != nil {
			return nil, err
		}
		shim := rs.OnCreate(input, now, rs.PrimaryKey(parentId), itemId)
		item, err := attributevalue.MarshalMap(shim)
		if err != nil {
			return nil, err
		}
		created = append(created, shim)
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	return created, rs.batchWrite(ctx, requests)
}

// DeleteAll removes every record under the parent.
func (rs *RepositoryDynamoDBService[T, I]) DeleteAll(ctx context.Context, parentId string) error {
	items, err := rs.List(ctx, parentId)
	if err != nil {
		return err
	}
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		key, err := Key(rs.PrimaryKey(parentId), rs.GetSK(item))
		if err != nil {
			return err
		}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key},
		})
	}
	return rs.batchWrite(ctx, requests)
}

func (rs *RepositoryDynamoDBService[T, I]) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += MAX_BATCH_SIZE {
		end := start + MAX_BATCH_SIZE
		if end > len(requests) {
			end = len(requests)
		}
		pending := map[string][]types.WriteRequest{
			rs.TableName: requests[start:end],
		}
		if err := rs.writeChunk(ctx, pending); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RepositoryDynamoDBService[T, I]) writeChunk(ctx context.Context, pending map[string][]types.WriteRequest) error {
	delay := BatchRetryDelay
	for attempt := 1; ; attempt++ {
		output, err := rs.DynamoDB.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return err
		}
		pending = output.UnprocessedItems
		if len(pending) == 0 {
			return nil
		}
		if attempt >= MAX_BATCH_ATTEMPTS {
			return fmt.Errorf("%s batch write left %d requests unprocessed after %d attempts", rs.resource(), len(pending[rs.TableName]), attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (rs *RepositoryDynamoDBService[T, I]) Update(ctx context.Context, parentId string, itemId string, input I) (T, error) {
	pk := rs.PrimaryKey(parentId)
	shim := rs.Shim(pk, itemId)
	key, err := Key(pk, itemId)
	if err != nil {
		return shim, err
	}
	update := expression.Set(expression.Name("updateTime"), expression.Value(time.Now()))
	condition := expression.Name("PK").AttributeExists().And(expression.Name("SK").AttributeExists())
	if rs.OnUpdate != nil {
		update = rs.OnUpdate(input, update)
	}
	expr, err := expression.NewBuilder().WithCondition(condition).WithUpdate(update).Build()
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(rs.TableName),
		Key:                       key,
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if IsConditionFailed(err) {
			return shim, exceptions.NotFound(rs.resource(), itemId)
		}
		return shim, err
	}
	err = attributevalue.UnmarshalMap(response.Attributes, &shim)
	return shim, err
}

func (rs *RepositoryDynamoDBService[T, I]) Get(ctx context.Context, parentId string, itemId string) (T, error) {
	pk := rs.PrimaryKey(parentId)
	shim := rs.Shim(pk, itemId)
	key, err := Key(pk, itemId)
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(rs.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return shim, err
	}
	if response.Item == nil {
		return shim, exceptions.NotFound(rs.resource(), itemId)
	}
	err = attributevalue.UnmarshalMap(response.Item, &shim)
	return shim, err
}

func (rs *RepositoryDynamoDBService[T, I]) Delete(ctx context.Context, parentId string, itemId string) error {
	key, err := Key(rs.PrimaryKey(parentId), itemId)
	if err != nil {
		return err
	}
	condition := expression.Name("PK").AttributeExists().And(expression.Name("SK").AttributeExists())
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return err
	}
	_, err = rs.DynamoDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:                      key,
		TableName:                aws.String(rs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if IsConditionFailed(err) {
		return exceptions.NotFound(rs.resource(), itemId)
	}
	return err
}
