package shopping

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/routes/util"
)

var wireTypes = map[data.ListType]string{
	data.PLANNING: "planejamento",
	data.ACTIVE:   "ativa",
}

var wireStatus = map[data.ListStatus]string{
	data.STATUS_ACTIVE:    "ativa",
	data.STATUS_FINALIZED: "finalizada",
}

type ShoppingItem struct {
	Id        string   `json:"id"`
	Name      string   `json:"nome_produto"`
	Quantity  int      `json:"quantidade"`
	UnitPrice *float64 `json:"valor_unitario,omitempty"`
	Purchased bool     `json:"comprado"`
	Included  bool     `json:"incluido"`
}

func NewShoppingItem(item data.ShoppingItemDTO) ShoppingItem {
	return ShoppingItem{
		Id:        item.SK,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Purchased: item.Purchased,
		Included:  item.Included,
	}
}

type ShoppingList struct {
	Id           string         `json:"id"`
	LegacyId     string         `json:"_id"`
	Owner        string         `json:"usuario_email"`
	Type         string         `json:"tipo"`
	Status       string         `json:"status"`
	CreateTime   time.Time      `json:"data_criacao"`
	FinalizeTime *time.Time     `json:"data_finalizacao,omitempty"`
	TotalValue   *float64       `json:"valor_total,omitempty"`
	Items        []ShoppingItem `json:"items"`
}

func NewShoppingList(details data.ShoppingListDetails) ShoppingList {
	return ShoppingList{
		Id:           details.List.SK,
		LegacyId:     details.List.SK,
		Owner:        details.List.Owner,
		Type:         wireTypes[details.List.Type],
		Status:       wireStatus[details.List.Status],
		CreateTime:   details.List.CreateTime,
		FinalizeTime: details.List.FinalizeTime,
		TotalValue:   details.List.TotalValue,
		Items:        util.MapOnList(details.Items, NewShoppingItem),
	}
}

// OptionalPrice distinguishes an absent price from one explicitly cleared
// with null or an empty string. Numeric strings are accepted.
type OptionalPrice struct {
	Set   bool
	Value *float64
}

func (op *OptionalPrice) UnmarshalJSON(b []byte) error {
	op.Set = true
	op.Value = nil
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return exceptions.InvalidInput("Price must be a number")
		}
		op.Value = &value
		return nil
	}
	var value float64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return exceptions.InvalidInput("Price must be a number")
	}
	op.Value = &value
	return nil
}

type ShoppingItemInput struct {
	Name      *string       `json:"nome_produto,omitempty"`
	Quantity  *int          `json:"quantidade,omitempty"`
	UnitPrice OptionalPrice `json:"valor_unitario"`
	Purchased *bool         `json:"comprado,omitempty"`
}

func (in *ShoppingItemInput) ToData() data.ShoppingItemInputDTO {
	return data.ShoppingItemInputDTO{
		Name:           in.Name,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice.Value,
		ClearUnitPrice: in.UnitPrice.Set && in.UnitPrice.Value == nil,
		Purchased:      in.Purchased,
	}
}

type FinishInput struct {
	TotalValue OptionalPrice `json:"valor_total"`
}

type FinishResponse struct {
	Message string       `json:"message"`
	List    ShoppingList `json:"list"`
}
