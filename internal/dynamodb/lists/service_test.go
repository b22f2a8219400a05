package lists_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/dynamodb/items"
	"philcali.me/groceries/internal/dynamodb/lists"
	"philcali.me/groceries/internal/dynamodb/services"
	"philcali.me/groceries/internal/dynamodb/users"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/test"
)

// rejectingClient fails every transaction the way DynamoDB does when a
// condition check is violated.
type rejectingClient struct {
	services.DynamoDBClient
	reasons []types.CancellationReason
	calls   int
}

func (rc *rejectingClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	rc.calls++
	return nil, &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: rc.reasons,
	}
}

// staleIndexClient serves GS1 rows from index and base table rows from table,
// so the two can disagree the way an eventually consistent index does.
type staleIndexClient struct {
	services.DynamoDBClient
	index   []data.ShoppingListDTO
	table   map[string]data.ShoppingListDTO
	queries []*dynamodb.QueryInput
	gets    []*dynamodb.GetItemInput
}

func (sc *staleIndexClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	sc.queries = append(sc.queries, params)
	items := make([]map[string]types.AttributeValue, 0, len(sc.index))
	for _, list := range sc.index {
		item, err := attributevalue.MarshalMap(list)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (sc *staleIndexClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	sc.gets = append(sc.gets, params)
	var sk string
	if err := attributevalue.Unmarshal(params.Key["SK"], &sk); err != nil {
		return nil, err
	}
	list, ok := sc.table[sk]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	item, err := attributevalue.MarshalMap(list)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func listAt(sk string, status data.ListStatus, created time.Time) data.ShoppingListDTO {
	return data.ShoppingListDTO{
		PK:            "ana@example.com:ShoppingList",
		SK:            sk,
		FirstIndex:    lists.FirstIndex("ana@example.com", data.ACTIVE, data.STATUS_ACTIVE),
		FirstIndexKey: data.SortKeyTime(created),
		Owner:         "ana@example.com",
		Type:          data.ACTIVE,
		Status:        status,
		CreateTime:    created,
		UpdateTime:    created,
	}
}

func TestCurrentSkipsStaleIndexRows(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	t.Run("FinalizedInTable", func(t *testing.T) {
		closed := listAt("list-new", data.STATUS_FINALIZED, newer)
		client := &staleIndexClient{
			index: []data.ShoppingListDTO{
				listAt("list-new", data.STATUS_ACTIVE, newer),
				listAt("list-old", data.STATUS_ACTIVE, older),
			},
			table: map[string]data.ShoppingListDTO{
				"list-new": closed,
				"list-old": listAt("list-old", data.STATUS_ACTIVE, older),
			},
		}
		service := lists.NewShoppingListService("Groceries", "GS1", client)
		current, err := service.Current(context.TODO(), "Ana@Example.com", data.ACTIVE)
		require.NoError(t, err)
		assert.Equal(t, "list-old", current.SK)
		assert.Equal(t, data.STATUS_ACTIVE, current.Status)

		require.Len(t, client.queries, 1)
		assert.False(t, aws.ToBool(client.queries[0].ScanIndexForward))
		assert.Equal(t, "GS1", aws.ToString(client.queries[0].IndexName))
		require.Len(t, client.gets, 2)
		for _, get := range client.gets {
			assert.True(t, aws.ToBool(get.ConsistentRead))
		}
	})

	t.Run("NewestActiveWins", func(t *testing.T) {
		client := &staleIndexClient{
			index: []data.ShoppingListDTO{
				listAt("list-new", data.STATUS_ACTIVE, newer),
				listAt("list-old", data.STATUS_ACTIVE, older),
			},
			table: map[string]data.ShoppingListDTO{
				"list-new": listAt("list-new", data.STATUS_ACTIVE, newer),
				"list-old": listAt("list-old", data.STATUS_ACTIVE, older),
			},
		}
		service := lists.NewShoppingListService("Groceries", "GS1", client)
		current, err := service.Current(context.TODO(), "ana@example.com", data.ACTIVE)
		require.NoError(t, err)
		assert.Equal(t, "list-new", current.SK)
		assert.Len(t, client.gets, 1)
	})

	t.Run("AllStale", func(t *testing.T) {
		client := &staleIndexClient{
			index: []data.ShoppingListDTO{
				listAt("list-new", data.STATUS_ACTIVE, newer),
				listAt("list-gone", data.STATUS_ACTIVE, older),
			},
			table: map[string]data.ShoppingListDTO{
				"list-new": listAt("list-new", data.STATUS_FINALIZED, newer),
			},
		}
		service := lists.NewShoppingListService("Groceries", "GS1", client)
		_, err := service.Current(context.TODO(), "ana@example.com", data.ACTIVE)
		assert.True(t, exceptions.IsNotFound(err))
		assert.Len(t, client.gets, 2)
	})
}

func TestFinalizedLimitFitsQuery(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	client := &staleIndexClient{
		index: []data.ShoppingListDTO{listAt("list-1", data.STATUS_FINALIZED, created)},
	}
	service := lists.NewShoppingListService("Groceries", "GS1", client)
	results, err := service.Finalized(context.TODO(), "ana@example.com", data.FinalizedQuery{
		From:  created.Add(-time.Hour),
		To:    created.Add(time.Hour),
		Limit: math.MaxInt,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	require.Len(t, client.queries, 1)
	assert.Equal(t, int32(math.MaxInt32), aws.ToInt32(client.queries[0].Limit))
}

func activeList() data.ShoppingListDTO {
	return data.ShoppingListDTO{
		PK:     "ana@example.com:ShoppingList",
		SK:     "list-1",
		Owner:  "ana@example.com",
		Type:   data.ACTIVE,
		Status: data.STATUS_ACTIVE,
	}
}

func TestFinalizeConflict(t *testing.T) {
	client := &rejectingClient{
		reasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}
	service := lists.NewShoppingListService("Groceries", "GS1", client)
	_, err := service.Finalize(context.TODO(), activeList(), []data.ShoppingItemDTO{{SK: "item-1"}}, nil)
	require.Error(t, err)
	assert.True(t, exceptions.IsConflict(err))
	assert.Equal(t, http.StatusConflict, exceptions.StatusCode(err))
	assert.Equal(t, 1, client.calls)

	client.reasons = []types.CancellationReason{{Code: aws.String("ThrottlingError")}}
	_, err = service.Finalize(context.TODO(), activeList(), nil, nil)
	require.Error(t, err)
	assert.False(t, exceptions.IsConflict(err))
	var tce *types.TransactionCanceledException
	assert.True(t, errors.As(err, &tce))
}

func TestFirstIndex(t *testing.T) {
	assert.Equal(t, "ana@example.com:ShoppingList:active:finalized", lists.FirstIndex("ana@example.com", data.ACTIVE, data.STATUS_FINALIZED))
}

func TestDynamoDBRepositories(t *testing.T) {
	client, tableName := test.NewLocalTable(test.LOCAL_DDB_PORT, t)
	ctx := context.TODO()
	listData := lists.NewShoppingListService(tableName, test.INDEX_NAME, client)
	itemData := items.NewShoppingItemService(tableName, client)
	userData := users.NewUserService(tableName, client)
	owner := "Ana@Example.com"

	t.Run("Users", func(t *testing.T) {
		_, err := userData.Get(ctx, owner)
		assert.True(t, exceptions.IsNotFound(err))
		created, err := userData.Upsert(ctx, owner, data.UserInputDTO{Name: aws.String("Ana")})
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", created.Email)
		updated, err := userData.Upsert(ctx, owner, data.UserInputDTO{Name: aws.String("Ana Maria"), Picture: aws.String("pic")})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", updated.Name)
		fetched, err := userData.Get(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.Equal(t, "pic", aws.ToString(fetched.Picture))
	})

	t.Run("ListsAndItems", func(t *testing.T) {
		_, err := listData.Current(ctx, owner, data.ACTIVE)
		assert.True(t, exceptions.IsNotFound(err))

		active, err := listData.Create(ctx, owner, data.ACTIVE)
		require.NoError(t, err)
		current, err := listData.Current(ctx, owner, data.ACTIVE)
		require.NoError(t, err)
		assert.Equal(t, active.SK, current.SK)
		_, err = listData.Current(ctx, owner, data.PLANNING)
		assert.True(t, exceptions.IsNotFound(err))

		milk, err := itemData.Create(ctx, active.SK, data.ShoppingItemInputDTO{Name: aws.String(" Milk "), UnitPrice: aws.Float64(4.5)})
		require.NoError(t, err)
		assert.Equal(t, "Milk", milk.Name)
		assert.Equal(t, 1, milk.Quantity)
		assert.Equal(t, active.SK, milk.ListId)

		cleared, err := itemData.Update(ctx, active.SK, milk.SK, data.ShoppingItemInputDTO{Quantity: aws.Int(3), ClearUnitPrice: true})
		require.NoError(t, err)
		assert.Equal(t, 3, cleared.Quantity)
		assert.Nil(t, cleared.UnitPrice)

		batch, err := itemData.CreateAll(ctx, active.SK, []data.ShoppingItemInputDTO{
			{Name: aws.String("Bread")},
			{Name: aws.String("Eggs"), Quantity: aws.Int(12)},
		})
		require.NoError(t, err)
		assert.Len(t, batch, 2)
		count, err := itemData.Count(ctx, active.SK)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		listed, err := itemData.List(ctx, active.SK)
		require.NoError(t, err)
		total := 17.25
		replacement, err := listData.Finalize(ctx, current, listed, &total)
		require.NoError(t, err)
		assert.NotEqual(t, active.SK, replacement.SK)
		assert.Equal(t, data.STATUS_ACTIVE, replacement.Status)

		_, err = listData.Finalize(ctx, current, listed, &total)
		assert.True(t, exceptions.IsConflict(err))

		now, err := listData.Current(ctx, owner, data.ACTIVE)
		require.NoError(t, err)
		assert.Equal(t, replacement.SK, now.SK)

		finalized, err := listData.Finalized(ctx, owner, data.FinalizedQuery{
			From: time.Now().Add(-time.Hour),
			To:   time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		require.Len(t, finalized, 1)
		assert.Equal(t, active.SK, finalized[0].SK)
		assert.Equal(t, data.STATUS_FINALIZED, finalized[0].Status)
		require.NotNil(t, finalized[0].TotalValue)
		assert.Equal(t, total, *finalized[0].TotalValue)

		purchased, err := itemData.List(ctx, active.SK)
		require.NoError(t, err)
		for _, item := range purchased {
			assert.True(t, item.Purchased, item.Name)
		}

		require.NoError(t, itemData.Delete(ctx, active.SK, milk.SK))
		assert.True(t, exceptions.IsNotFound(itemData.Delete(ctx, active.SK, milk.SK)))
		require.NoError(t, itemData.DeleteAll(ctx, active.SK))
		count, err = itemData.Count(ctx, active.SK)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
