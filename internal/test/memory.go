package test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
)

// MemoryStore backs the in-memory repositories used by service and router
// tests. Now can be replaced to control create and finalize timestamps.
type MemoryStore struct {
	mutex sync.Mutex
	users map[string]data.UserDTO
	lists map[string]data.ShoppingListDTO
	items map[string][]data.ShoppingItemDTO
	Now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]data.UserDTO),
		lists: make(map[string]data.ShoppingListDTO),
		items: make(map[string][]data.ShoppingItemDTO),
		Now:   time.Now,
	}
}

func (ms *MemoryStore) Users() data.UserRepository {
	return &MemoryUsers{store: ms}
}

func (ms *MemoryStore) Lists() data.ShoppingListRepository {
	return &MemoryLists{store: ms}
}

func (ms *MemoryStore) Items() data.ShoppingItemRepository {
	return &MemoryItems{store: ms}
}

// PutList stores a list as-is, which lets tests seed finalized history.
func (ms *MemoryStore) PutList(list data.ShoppingListDTO, items ...data.ShoppingItemDTO) data.ShoppingListDTO {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if list.SK == "" {
		list.SK = uuid.NewString()
	}
	list.Owner = data.NormalizeEmail(list.Owner)
	ms.lists[list.SK] = list
	for _, item := range items {
		if item.SK == "" {
			item.SK = uuid.NewString()
		}
		item.ListId = list.SK
		item.NameKey = data.NormalizeName(item.Name)
		ms.items[list.SK] = append(ms.items[list.SK], item)
	}
	return list
}

// AllLists returns every stored list of the owner regardless of status.
func (ms *MemoryStore) AllLists(owner string) []data.ShoppingListDTO {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	var lists []data.ShoppingListDTO
	for _, list := range ms.lists {
		if list.Owner == data.NormalizeEmail(owner) {
			lists = append(lists, list)
		}
	}
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].CreateTime.Before(lists[j].CreateTime)
	})
	return lists
}

type MemoryUsers struct {
	store *MemoryStore
}

func (mu *MemoryUsers) Get(ctx context.Context, email string) (data.UserDTO, error) {
	mu.store.mutex.Lock()
	defer mu.store.mutex.Unlock()
	user, ok := mu.store.users[data.NormalizeEmail(email)]
	if !ok {
		return user, exceptions.NotFound("user", email)
	}
	return user, nil
}

func (mu *MemoryUsers) Upsert(ctx context.Context, email string, input data.UserInputDTO) (data.UserDTO, error) {
	mu.store.mutex.Lock()
	defer mu.store.mutex.Unlock()
	now := mu.store.Now()
	key := data.NormalizeEmail(email)
	user, ok := mu.store.users[key]
	if !ok {
		user = data.UserDTO{
			PK:         "Global:User",
			SK:         key,
			Email:      key,
			CreateTime: now,
		}
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Picture != nil {
		user.Picture = input.Picture
	}
	user.UpdateTime = now
	mu.store.users[key] = user
	return user, nil
}

type MemoryLists struct {
	store *MemoryStore
}

func (ml *MemoryLists) Get(ctx context.Context, owner string, listId string) (data.ShoppingListDTO, error) {
	ml.store.mutex.Lock()
	defer ml.store.mutex.Unlock()
	list, ok := ml.store.lists[listId]
	if !ok || list.Owner != data.NormalizeEmail(owner) {
		return data.ShoppingListDTO{}, exceptions.NotFound("shoppinglist", listId)
	}
	return list, nil
}

func (ml *MemoryLists) Current(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	ml.store.mutex.Lock()
	defer ml.store.mutex.Unlock()
	var current *data.ShoppingListDTO
	for _, list := range ml.store.lists {
		if list.Owner != data.NormalizeEmail(owner) || list.Type != listType || list.Status != data.STATUS_ACTIVE {
			continue
		}
		if current == nil || list.CreateTime.After(current.CreateTime) {
			found := list
			current = &found
		}
	}
	if current == nil {
		return data.ShoppingListDTO{}, exceptions.NotFound("shoppinglist", string(listType))
	}
	return *current, nil
}

func (ml *MemoryLists) Create(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	ml.store.mutex.Lock()
	defer ml.store.mutex.Unlock()
	return ml.create(owner, listType), nil
}

func (ml *MemoryLists) create(owner string, listType data.ListType) data.ShoppingListDTO {
	now := ml.store.Now()
	list := data.ShoppingListDTO{
		PK:         data.NormalizeEmail(owner) + ":ShoppingList",
		SK:         uuid.NewString(),
		Owner:      data.NormalizeEmail(owner),
		Type:       listType,
		Status:     data.STATUS_ACTIVE,
		CreateTime: now,
		UpdateTime: now,
	}
	ml.store.lists[list.SK] = list
	return list
}

func (ml *MemoryLists) Finalized(ctx context.Context, owner string, query data.FinalizedQuery) ([]data.ShoppingListDTO, error) {
	ml.store.mutex.Lock()
	defer ml.store.mutex.Unlock()
	results := make([]data.ShoppingListDTO, 0)
	for _, list := range ml.store.lists {
		if list.Owner != data.NormalizeEmail(owner) || list.Type != data.ACTIVE || list.Status != data.STATUS_FINALIZED {
			continue
		}
		if list.FinalizeTime == nil || list.FinalizeTime.Before(query.From) || list.FinalizeTime.After(query.To) {
			continue
		}
		results = append(results, list)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].FinalizeTime.After(*results[j].FinalizeTime)
	})
	if len(results) > query.GetLimit() {
		results = results[:query.GetLimit()]
	}
	return results, nil
}

func (ml *MemoryLists) Finalize(ctx context.Context, list data.ShoppingListDTO, listItems []data.ShoppingItemDTO, totalValue *float64) (data.ShoppingListDTO, error) {
	ml.store.mutex.Lock()
	defer ml.store.mutex.Unlock()
	stored, ok := ml.store.lists[list.SK]
	if !ok || stored.Status != data.STATUS_ACTIVE {
		return data.ShoppingListDTO{}, exceptions.Conflict("shoppinglist", list.SK)
	}
	now := ml.store.Now()
	for i := range ml.store.items[list.SK] {
		ml.store.items[list.SK][i].Purchased = true
	}
	stored.Status = data.STATUS_FINALIZED
	stored.FinalizeTime = &now
	stored.UpdateTime = now
	if totalValue != nil {
		value := *totalValue
		stored.TotalValue = &value
	}
	ml.store.lists[list.SK] = stored
	return ml.create(stored.Owner, data.ACTIVE), nil
}

type MemoryItems struct {
	store *MemoryStore
}

func (mi *MemoryItems) List(ctx context.Context, listId string) ([]data.ShoppingItemDTO, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	items := make([]data.ShoppingItemDTO, len(mi.store.items[listId]))
	copy(items, mi.store.items[listId])
	return items, nil
}

func (mi *MemoryItems) Get(ctx context.Context, listId string, itemId string) (data.ShoppingItemDTO, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	for _, item := range mi.store.items[listId] {
		if item.SK == itemId {
			return item, nil
		}
	}
	return data.ShoppingItemDTO{}, exceptions.NotFound("shoppingitem", itemId)
}

func (mi *MemoryItems) Create(ctx context.Context, listId string, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	return mi.create(listId, input), nil
}

func (mi *MemoryItems) create(listId string, input data.ShoppingItemInputDTO) data.ShoppingItemDTO {
	now := mi.store.Now()
	item := data.ShoppingItemDTO{
		PK:         listId + ":ShoppingItem",
		SK:         uuid.NewString(),
		ListId:     listId,
		Quantity:   1,
		CreateTime: now,
		UpdateTime: now,
	}
	apply(&item, input)
	mi.store.items[listId] = append(mi.store.items[listId], item)
	return item
}

func (mi *MemoryItems) CreateAll(ctx context.Context, listId string, inputs []data.ShoppingItemInputDTO) ([]data.ShoppingItemDTO, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	created := make([]data.ShoppingItemDTO, 0, len(inputs))
	for _, input := range inputs {
		created = append(created, mi.create(listId, input))
	}
	return created, nil
}

func (mi *MemoryItems) Update(ctx context.Context, listId string, itemId string, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	for i, item := range mi.store.items[listId] {
		if item.SK == itemId {
			apply(&item, input)
			item.UpdateTime = mi.store.Now()
			mi.store.items[listId][i] = item
			return item, nil
		}
	}
	return data.ShoppingItemDTO{}, exceptions.NotFound("shoppingitem", itemId)
}

func (mi *MemoryItems) Delete(ctx context.Context, listId string, itemId string) error {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	for i, item := range mi.store.items[listId] {
		if item.SK == itemId {
			mi.store.items[listId] = append(mi.store.items[listId][:i], mi.store.items[listId][i+1:]...)
			return nil
		}
	}
	return exceptions.NotFound("shoppingitem", itemId)
}

func (mi *MemoryItems) DeleteAll(ctx context.Context, listId string) error {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	delete(mi.store.items, listId)
	return nil
}

func (mi *MemoryItems) Count(ctx context.Context, listId string) (int, error) {
	mi.store.mutex.Lock()
	defer mi.store.mutex.Unlock()
	return len(mi.store.items[listId]), nil
}

func apply(item *data.ShoppingItemDTO, input data.ShoppingItemInputDTO) {
	if input.Name != nil {
		item.Name = strings.TrimSpace(*input.Name)
		item.NameKey = data.NormalizeName(*input.Name)
	}
	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.ClearUnitPrice {
		item.UnitPrice = nil
	} else if input.UnitPrice != nil {
		price := *input.UnitPrice
		item.UnitPrice = &price
	}
	if input.Purchased != nil {
		item.Purchased = *input.Purchased
	}
	if input.Included != nil {
		item.Included = *input.Included
	}
}
