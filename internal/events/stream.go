package events

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func convertStreamAttribute(attr events.DynamoDBAttributeValue) types.AttributeValue {
	switch attr.DataType() {
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{
			Value: attr.Boolean(),
		}
	case events.DataTypeString:
		return &types.AttributeValueMemberS{
			Value: attr.String(),
		}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{
			Value: attr.Binary(),
		}
	case events.DataTypeList:
		ls := make([]types.AttributeValue, len(attr.List()))
		for i, item := range attr.List() {
			ls[i] = convertStreamAttribute(item)
		}
		return &types.AttributeValueMemberL{
			Value: ls,
		}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{
			Value: attr.IsNull(),
		}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{
			Value: attr.BinarySet(),
		}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{
			Value: attr.Number(),
		}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{
			Value: attr.NumberSet(),
		}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{
			Value: attr.StringSet(),
		}
	case events.DataTypeMap:
		ms := make(map[string]types.AttributeValue, len(attr.Map()))
		for field, value := range attr.Map() {
			ms[field] = convertStreamAttribute(value)
		}
		return &types.AttributeValueMemberM{
			Value: ms,
		}
	}
	return nil
}

// DecodeImage reads a stream image into the same DTO the repositories use.
func DecodeImage[T interface{}](image map[string]events.DynamoDBAttributeValue) (T, error) {
	var item T
	converted := make(map[string]types.AttributeValue, len(image))
	for field, value := range image {
		if attr := convertStreamAttribute(value); attr != nil {
			converted[field] = attr
		}
	}
	err := attributevalue.UnmarshalMap(converted, &item)
	return item, err
}

// resourceType is the entity name carried by an "<owner>:<Resource>" key.
func resourceType(record events.DynamoDBEventRecord) string {
	pk, ok := record.Change.Keys["PK"]
	if !ok || pk.DataType() != events.DataTypeString {
		return ""
	}
	idx := strings.LastIndex(pk.String(), ":")
	if idx < 0 {
		return ""
	}
	return pk.String()[idx+1:]
}

func stringField(image map[string]events.DynamoDBAttributeValue, name string) string {
	value, ok := image[name]
	if !ok || value.DataType() != events.DataTypeString {
		return ""
	}
	return value.String()
}
