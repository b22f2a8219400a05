package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const (
	LOCAL_DDB_PORT = 8000
	INDEX_NAME     = "GS1"
)

func stringAttribute(name string) types.AttributeDefinition {
	return types.AttributeDefinition{
		AttributeName: aws.String(name),
		AttributeType: types.ScalarAttributeTypeS,
	}
}

func keySchema(hash string, rng string) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{
			AttributeName: aws.String(hash),
			KeyType:       types.KeyTypeHash,
		},
		{
			AttributeName: aws.String(rng),
			KeyType:       types.KeyTypeRange,
		},
	}
}

// CreateTable creates a uniquely named table with the GS1 index the list
// repository queries.
func CreateTable(client *dynamodb.Client) (string, error) {
	output, err := client.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName:   aws.String("Groceries-" + uuid.NewString()),
		KeySchema:   keySchema("PK", "SK"),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttribute("PK"),
			stringAttribute("SK"),
			stringAttribute("GS1-PK"),
			stringAttribute("GS1-SK"),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(INDEX_NAME),
				KeySchema: keySchema("GS1-PK", "GS1-SK"),
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	waiter := dynamodb.NewTableExistsWaiter(client, func(tewo *dynamodb.TableExistsWaiterOptions) {
		tewo.LogWaitAttempts = true
	})
	_, err = waiter.WaitForOutput(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: output.TableDescription.TableName,
	}, time.Second*5)
	return *output.TableDescription.TableName, err
}

func (l *LocalDynamoServer) CreateLocalClient() (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRetryMaxAttempts(10),
		config.WithRegion("us-east-1"),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: l.Endpoint}, nil
			})),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "fake",
				SecretAccessKey: "fake",
				SessionToken:    "fake",
			}}),
	)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

type LocalDynamoServer struct {
	Process  *os.Process
	Endpoint string
}

// StartLocalServer connects to DYNAMODB_LOCAL_ENDPOINT when set, or launches
// the DynamoDB Local jar named by DYNAMODB_LOCAL_JAR. Without either the
// calling test is skipped.
func StartLocalServer(port int, t *testing.T) *LocalDynamoServer {
	if endpoint := os.Getenv("DYNAMODB_LOCAL_ENDPOINT"); endpoint != "" {
		return &LocalDynamoServer{Endpoint: endpoint}
	}
	jar := os.Getenv("DYNAMODB_LOCAL_JAR")
	if jar == "" {
		t.Skip("DYNAMODB_LOCAL_ENDPOINT or DYNAMODB_LOCAL_JAR is required for DynamoDB tests")
	}
	cmd := exec.Command(
		"java", fmt.Sprintf("-Djava.library.path=%s", os.Getenv("DYNAMODB_LOCAL_LIB")),
		"-jar", jar,
		"-port", strconv.Itoa(port),
		"-inMemory",
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start local DDB server: %s", err)
	}
	t.Cleanup(func() {
		if err := cmd.Process.Kill(); err != nil {
			t.Errorf("Failed to terminate local DDB server: %s", err)
		}
	})
	return &LocalDynamoServer{
		Endpoint: fmt.Sprintf("http://localhost:%d", port),
		Process:  cmd.Process,
	}
}

// NewLocalTable is the usual entry point for repository tests.
func NewLocalTable(port int, t *testing.T) (*dynamodb.Client, string) {
	server := StartLocalServer(port, t)
	client, err := server.CreateLocalClient()
	if err != nil {
		t.Fatalf("Failed to create DDB client: %s", err)
	}
	tableName, err := CreateTable(client)
	if err != nil {
		t.Fatalf("Failed to create DDB table: %s", err)
	}
	t.Logf("Successfully created table %s on %s", tableName, server.Endpoint)
	return client, tableName
}
