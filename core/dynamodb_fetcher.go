package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient is the subset of the DynamoDB API the fetcher needs.
type DynamoDBClient interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBDataFetcher scans DynamoDB tables.
type DynamoDBDataFetcher struct {
	Client DynamoDBClient
}

func NewDynamoDBDataFetcher(cfg aws.Config) *DynamoDBDataFetcher {
	return &DynamoDBDataFetcher{Client: dynamodb.NewFromConfig(cfg)}
}

// Fetch scans table, filtering on string equality for every parameter.
func (f *DynamoDBDataFetcher) Fetch(ctx context.Context, table string, params map[string]string) ([]map[string]any, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(table)}

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		names := make(map[string]string, len(keys))
		values := make(map[string]types.AttributeValue, len(keys))
		conditions := make([]string, 0, len(keys))
		for i, k := range keys {
			// placeholders avoid clashes with reserved words
			kName := fmt.Sprintf("#k%d", i)
			vName := fmt.Sprintf(":v%d", i)
			conditions = append(conditions, kName+" = "+vName)
			names[kName] = k
			values[vName] = &types.AttributeValueMemberS{Value: params[k]}
		}
		input.FilterExpression = aws.String(strings.Join(conditions, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	paginator := dynamodb.NewScanPaginator(f.Client, input)
	var items []map[string]any
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", table, err)
		}
		var pageItems []map[string]any
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		items = append(items, pageItems...)
	}
	return items, nil
}
