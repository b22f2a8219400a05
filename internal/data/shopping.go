package data

import (
	"context"
	"time"
)

type ListType string

const (
	PLANNING ListType = "planning"
	ACTIVE   ListType = "active"
)

type ListStatus string

const (
	STATUS_ACTIVE    ListStatus = "active"
	STATUS_FINALIZED ListStatus = "finalized"
)

type ShoppingListDTO struct {
	PK            string     `dynamodbav:"PK"`
	SK            string     `dynamodbav:"SK"`
	FirstIndex    string     `dynamodbav:"GS1-PK"`
	FirstIndexKey string     `dynamodbav:"GS1-SK"`
	Owner         string     `dynamodbav:"owner"`
	Type          ListType   `dynamodbav:"listType"`
	Status        ListStatus `dynamodbav:"status"`
	TotalValue    *float64   `dynamodbav:"totalValue"`
	FinalizeTime  *time.Time `dynamodbav:"finalizeTime"`
	CreateTime    time.Time  `dynamodbav:"createTime"`
	UpdateTime    time.Time  `dynamodbav:"updateTime"`
}

func (l ShoppingListDTO) Id() string {
	return l.SK
}

type ShoppingItemDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	ListId     string    `dynamodbav:"listId"`
	Name       string    `dynamodbav:"name"`
	NameKey    string    `dynamodbav:"nameKey"`
	Quantity   int       `dynamodbav:"quantity"`
	UnitPrice  *float64  `dynamodbav:"unitPrice"`
	Purchased  bool      `dynamodbav:"purchased"`
	Included   bool      `dynamodbav:"included"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

func (i ShoppingItemDTO) Id() string {
	return i.SK
}

type ShoppingItemInputDTO struct {
	Name           *string  `dynamodbav:"name"`
	Quantity       *int     `dynamodbav:"quantity"`
	UnitPrice      *float64 `dynamodbav:"unitPrice"`
	ClearUnitPrice bool     `dynamodbav:"-"`
	Purchased      *bool    `dynamodbav:"purchased"`
	Included       *bool    `dynamodbav:"included"`
}

type ShoppingListDetails struct {
	List  ShoppingListDTO
	Items []ShoppingItemDTO
}

type ShoppingListRepository interface {
	Get(ctx context.Context, owner string, listId string) (ShoppingListDTO, error)
	// Current returns the owner's list of the given type that is still
	// active, or a NotFoundError when there is none.
	Current(ctx context.Context, owner string, listType ListType) (ShoppingListDTO, error)
	Create(ctx context.Context, owner string, listType ListType) (ShoppingListDTO, error)
	// Finalized returns finalized active-type lists whose finalize time falls
	// in [From, To], newest first.
	Finalized(ctx context.Context, owner string, query FinalizedQuery) ([]ShoppingListDTO, error)
	// Finalize marks every item purchased, closes the list and opens the
	// replacement active list, which is returned.
	Finalize(ctx context.Context, list ShoppingListDTO, items []ShoppingItemDTO, totalValue *float64) (ShoppingListDTO, error)
}

type ShoppingItemRepository interface {
	List(ctx context.Context, listId string) ([]ShoppingItemDTO, error)
	Get(ctx context.Context, listId string, itemId string) (ShoppingItemDTO, error)
	Create(ctx context.Context, listId string, input ShoppingItemInputDTO) (ShoppingItemDTO, error)
	CreateAll(ctx context.Context, listId string, inputs []ShoppingItemInputDTO) ([]ShoppingItemDTO, error)
	Update(ctx context.Context, listId string, itemId string, input ShoppingItemInputDTO) (ShoppingItemDTO, error)
	Delete(ctx context.Context, listId string, itemId string) error
	DeleteAll(ctx context.Context, listId string) error
	Count(ctx context.Context, listId string) (int, error)
}
