// Package shopping manages the planning and active lists of each user and
// the purchase workflow between them.
package shopping

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
)

type Service struct {
	Lists data.ShoppingListRepository
	Items data.ShoppingItemRepository
}

func NewService(lists data.ShoppingListRepository, items data.ShoppingItemRepository) *Service {
	return &Service{
		Lists: lists,
		Items: items,
	}
}

// GetOrCreate returns the current list of the given type, creating an empty
// one when the user has none.
func (s *Service) GetOrCreate(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	list, err := s.Lists.Current(ctx, owner, listType)
	if exceptions.IsNotFound(err) {
		zap.L().Debug("Creating list", zap.String("owner", owner), zap.String("type", string(listType)))
		return s.Lists.Create(ctx, owner, listType)
	}
	return list, err
}

func (s *Service) Get(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDetails, error) {
	list, err := s.GetOrCreate(ctx, owner, listType)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	items, err := s.Items.List(ctx, list.SK)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	return data.ShoppingListDetails{List: list, Items: items}, nil
}

// find is the current list lookup used by mutations that must not create one.
func (s *Service) find(ctx context.Context, owner string, listType data.ListType) (data.ShoppingListDTO, error) {
	list, err := s.Lists.Current(ctx, owner, listType)
	if exceptions.IsNotFound(err) {
		return list, exceptions.NotFound(fmt.Sprintf("%s list", listType), "")
	}
	return list, err
}

func (s *Service) AddItem(ctx context.Context, owner string, listType data.ListType, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	if input.Name == nil {
		return data.ShoppingItemDTO{}, exceptions.InvalidInput("Product name is required")
	}
	if input.Quantity == nil {
		quantity := 1
		input.Quantity = &quantity
	}
	if err := validate(input); err != nil {
		return data.ShoppingItemDTO{}, err
	}
	list, err := s.GetOrCreate(ctx, owner, listType)
	if err != nil {
		return data.ShoppingItemDTO{}, err
	}
	items, err := s.Items.List(ctx, list.SK)
	if err != nil {
		return data.ShoppingItemDTO{}, err
	}
	if _, exists := findByName(items, *input.Name, ""); exists {
		return data.ShoppingItemDTO{}, duplicate(*input.Name)
	}
	purchased, included := false, false
	return s.Items.Create(ctx, list.SK, data.ShoppingItemInputDTO{
		Name:      input.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		Purchased: &purchased,
		Included:  &included,
	})
}

// UpdateItem applies any subset of name, quantity, price and purchased.
func (s *Service) UpdateItem(ctx context.Context, owner string, listType data.ListType, itemId string, input data.ShoppingItemInputDTO) (data.ShoppingItemDTO, error) {
	if err := validate(input); err != nil {
		return data.ShoppingItemDTO{}, err
	}
	list, err := s.find(ctx, owner, listType)
	if err != nil {
		return data.ShoppingItemDTO{}, err
	}
	items, err := s.Items.List(ctx, list.SK)
	if err != nil {
		return data.ShoppingItemDTO{}, err
	}
	if !containsItem(items, itemId) {
		return data.ShoppingItemDTO{}, exceptions.NotFound("item", itemId)
	}
	if input.Name != nil {
		if _, exists := findByName(items, *input.Name, itemId); exists {
			return data.ShoppingItemDTO{}, duplicate(*input.Name)
		}
	}
	input.Included = nil
	return s.Items.Update(ctx, list.SK, itemId, input)
}

func (s *Service) RemoveItem(ctx context.Context, owner string, listType data.ListType, itemId string) error {
	list, err := s.find(ctx, owner, listType)
	if err != nil {
		return err
	}
	if err := s.Items.Delete(ctx, list.SK, itemId); err != nil {
		if exceptions.IsNotFound(err) {
			return exceptions.NotFound("item", itemId)
		}
		return err
	}
	return nil
}

// IncludeItem makes sure the planning item is on the active list and flags
// it as included.
func (s *Service) IncludeItem(ctx context.Context, owner string, itemId string) (data.ShoppingItemDTO, error) {
	planning, err := s.find(ctx, owner, data.PLANNING)
	if err != nil {
		return data.ShoppingItemDTO{}, err
	}
	item, err := s.Items.Get(ctx, planning.SK, itemId)
	if err != nil {
		if exceptions.IsNotFound(err) {
			return item, exceptions.NotFound("item", itemId)
		}
		return item, err
	}
	active, err := s.GetOrCreate(ctx, owner, data.ACTIVE)
	if err != nil {
		return item, err
	}
	activeItems, err := s.Items.List(ctx, active.SK)
	if err != nil {
		return item, err
	}
	if _, exists := findByName(activeItems, item.Name, ""); !exists {
		if _, err := s.Items.Create(ctx, active.SK, copyOf(item)); err != nil {
			return item, err
		}
	}
	included := true
	return s.Items.Update(ctx, planning.SK, itemId, data.ShoppingItemInputDTO{
		Included: &included,
	})
}

// CopyToActive replaces every active item with a fresh copy of the planning
// items.
func (s *Service) CopyToActive(ctx context.Context, owner string) (data.ShoppingListDetails, error) {
	planning, err := s.find(ctx, owner, data.PLANNING)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	planned, err := s.Items.List(ctx, planning.SK)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	if len(planned) == 0 {
		return data.ShoppingListDetails{}, exceptions.InvalidInput("Planning list is empty")
	}
	active, err := s.GetOrCreate(ctx, owner, data.ACTIVE)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	if err := s.Items.DeleteAll(ctx, active.SK); err != nil {
		return data.ShoppingListDetails{}, err
	}
	inputs := make([]data.ShoppingItemInputDTO, len(planned))
	for i, item := range planned {
		inputs[i] = copyOf(item)
	}
	copied, err := s.Items.CreateAll(ctx, active.SK, inputs)
	if err != nil {
		return data.ShoppingListDetails{}, err
	}
	zap.L().Info("Copied planning list", zap.String("owner", owner), zap.Int("items", len(copied)))
	return data.ShoppingListDetails{List: active, Items: copied}, nil
}

// FinishPurchase finalizes the active list and returns its empty
// replacement.
func (s *Service) FinishPurchase(ctx context.Context, owner string, totalValue *float64) (data.ShoppingListDTO, error) {
	if totalValue != nil && *totalValue < 0 {
		return data.ShoppingListDTO{}, exceptions.InvalidInput("Total value cannot be negative")
	}
	active, err := s.find(ctx, owner, data.ACTIVE)
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	items, err := s.Items.List(ctx, active.SK)
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	if len(items) == 0 {
		return data.ShoppingListDTO{}, exceptions.InvalidInput("Active list is empty")
	}
	replacement, err := s.Lists.Finalize(ctx, active, items, totalValue)
	if err != nil {
		return data.ShoppingListDTO{}, err
	}
	zap.L().Info("Finalized purchase",
		zap.String("owner", owner),
		zap.String("listId", active.SK),
		zap.Int("items", len(items)))
	return replacement, nil
}

func validate(input data.ShoppingItemInputDTO) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return exceptions.InvalidInput("Product name is required")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return exceptions.InvalidInput("Quantity must be at least 1")
	}
	if !input.ClearUnitPrice && input.UnitPrice != nil && *input.UnitPrice < 0 {
		return exceptions.InvalidInput("Unit price cannot be negative")
	}
	return nil
}

func duplicate(name string) error {
	return exceptions.InvalidInput(fmt.Sprintf("Item %q already exists in the list", strings.TrimSpace(name)))
}

// findByName matches on the normalized name, ignoring the item with skipId.
func findByName(items []data.ShoppingItemDTO, name string, skipId string) (data.ShoppingItemDTO, bool) {
	key := data.NormalizeName(name)
	for _, item := range items {
		if item.SK != skipId && data.NormalizeName(item.Name) == key {
			return item, true
		}
	}
	return data.ShoppingItemDTO{}, false
}

func containsItem(items []data.ShoppingItemDTO, itemId string) bool {
	for _, item := range items {
		if item.SK == itemId {
			return true
		}
	}
	return false
}

func copyOf(item data.ShoppingItemDTO) data.ShoppingItemInputDTO {
	name := item.Name
	quantity := item.Quantity
	purchased, included := false, false
	input := data.ShoppingItemInputDTO{
		Name:      &name,
		Quantity:  &quantity,
		Purchased: &purchased,
		Included:  &included,
	}
	if item.UnitPrice != nil {
		price := *item.UnitPrice
		input.UnitPrice = &price
	}
	return input
}
