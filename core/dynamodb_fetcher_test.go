package core

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type MockDynamoDBClient struct {
	ScanFunc func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}

func TestDynamoDBDataFetcher_Fetch(t *testing.T) {
	mockClient := &MockDynamoDBClient{
		ScanFunc: func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			if *params.TableName != "staff" {
				t.Errorf("TableName = %v, want staff", *params.TableName)
			}
			if params.FilterExpression == nil {
				t.Fatal("FilterExpression is nil")
			}
			// keys are sorted, so placeholders are stable
			if got := *params.FilterExpression; got != "#k0 = :v0 AND #k1 = :v1" {
				t.Errorf("FilterExpression = %q", got)
			}
			if params.ExpressionAttributeNames["#k0"] != "dept" || params.ExpressionAttributeNames["#k1"] != "id" {
				t.Errorf("ExpressionAttributeNames = %v", params.ExpressionAttributeNames)
			}

			return &dynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{
					{
						"id":   &types.AttributeValueMemberS{Value: "123"},
						"name": &types.AttributeValueMemberS{Value: "Test Name"},
					},
				},
				Count: 1,
			}, nil
		},
	}

	fetcher := &DynamoDBDataFetcher{Client: mockClient}
	results, err := fetcher.Fetch(context.Background(), "staff", map[string]string{"id": "123", "dept": "D1"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("results count = %d, want 1", len(results))
	}
	if results[0]["name"] != "Test Name" {
		t.Errorf("name = %v, want Test Name", results[0]["name"])
	}
}

func TestDynamoDBDataFetcher_Pages(t *testing.T) {
	calls := 0
	mockClient := &MockDynamoDBClient{
		ScanFunc: func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			calls++
			if params.FilterExpression != nil {
				t.Errorf("unexpected filter %q", *params.FilterExpression)
			}
			out := &dynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{
					{"n": &types.AttributeValueMemberN{Value: "1"}},
				},
			}
			if params.ExclusiveStartKey == nil {
				out.LastEvaluatedKey = map[string]types.AttributeValue{"n": &types.AttributeValueMemberN{Value: "1"}}
			}
			return out, nil
		},
	}

	results, err := (&DynamoDBDataFetcher{Client: mockClient}).Fetch(context.Background(), "staff", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if calls != 2 || len(results) != 2 {
		t.Fatalf("calls = %d, results = %d, want 2 and 2", calls, len(results))
	}
}

func TestDynamoDBDataFetcher_Error(t *testing.T) {
	mockClient := &MockDynamoDBClient{
		ScanFunc: func(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	if _, err := (&DynamoDBDataFetcher{Client: mockClient}).Fetch(context.Background(), "staff", nil); err == nil {
		t.Fatal("expected an error")
	}
}
