// Package dynamodb stores schedule and period records in a single DynamoDB
// table keyed by (pk, sk), where pk is the record kind and sk its name.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// DynamoDB request limits.
	maxBatchGet   = 100
	maxBatchWrite = 25

	maxRetries = 3
)

// Client is the subset of *dynamodb.Client the store uses.
type Client interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// NewClient builds a DynamoDB client. A non-empty endpoint points it at a
// local DynamoDB.
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

type Store struct {
	client     Client
	table      string
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewStore(client Client, table string, logger *slog.Logger) *Store {
	return &Store{
		client:     client,
		table:      table,
		retryDelay: 200 * time.Millisecond,
		logger:     logger.With("component", "dynamodb_store", "table", table),
	}
}

// WithRetryDelay sets the pause before resending unprocessed batch items.
func (s *Store) WithRetryDelay(d time.Duration) *Store {
	s.retryDelay = d
	return s
}

func key(kind, name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: kind},
		"sk": &types.AttributeValueMemberS{Value: name},
	}
}

func (s *Store) GetSchedule(ctx context.Context, name string) (*domain.Schedule, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(domain.KindSchedule, name),
		// timezone is a reserved word.
		ProjectionExpression:     aws.String("pk, sk, periods, #tz"),
		ExpressionAttributeNames: map[string]string{"#tz": "timezone"},
	})
	if err != nil {
		return nil, fmt.Errorf("get schedule %q: %w", name, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrScheduleNotFound
	}

	var rec domain.Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("%w: schedule/%s: %v", domain.ErrInvalidRecord, name, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec.Schedule(), nil
}

// BatchGetPeriods returns periods in the order DynamoDB responds with them,
// which is not the request order. Keys still unprocessed after retries are
// left out so the caller reports them as missing.
func (s *Store) BatchGetPeriods(ctx context.Context, names []string) ([]domain.Period, domain.Issues, error) {
	var (
		periods []domain.Period
		issues  domain.Issues
	)

	for start := 0; start < len(names); start += maxBatchGet {
		end := min(start+maxBatchGet, len(names))
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, name := range names[start:end] {
			keys = append(keys, key(domain.KindPeriod, name))
		}

		items, err := s.batchGet(ctx, keys)
		if err != nil {
			return nil, nil, err
		}

		for _, item := range items {
			var rec domain.Record
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				issues.Add(domain.ComponentStore, "decode period: %v", err)
				continue
			}
			if err := rec.Validate(); err != nil {
				issues.Add(domain.ComponentStore, "%v", err)
				continue
			}
			periods = append(periods, rec.Period())
		}
	}

	s.logger.DebugContext(ctx, "fetched periods", "requested", len(names), "received", len(periods))
	return periods, issues, nil
}

func (s *Store) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	request := map[string]types.KeysAndAttributes{s.table: {Keys: keys}}

	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("batch get periods: %w", err)
		}
		items = append(items, out.Responses[s.table]...)

		pending := out.UnprocessedKeys[s.table]
		if len(pending.Keys) == 0 {
			return items, nil
		}
		if attempt == maxRetries {
			s.logger.WarnContext(ctx, "giving up on unprocessed period keys", "count", len(pending.Keys))
			return items, nil
		}
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		request = map[string]types.KeysAndAttributes{s.table: pending}
	}
}

// ListRecords scans the whole table.
func (s *Store) ListRecords(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: aws.String(s.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan records: %w", err)
		}
		var batch []domain.Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		records = append(records, batch...)
	}

	s.logger.InfoContext(ctx, "scanned records", "count", len(records))
	return records, nil
}

// PutRecords writes records in batches of 25. Items DynamoDB still reports
// as unprocessed after retries fail the call.
func (s *Store) PutRecords(ctx context.Context, records []domain.Record) error {
	for start := 0; start < len(records); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(records))

		writes := make([]types.WriteRequest, 0, end-start)
		for _, rec := range records[start:end] {
			item, err := attributevalue.MarshalMap(rec)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", rec.Kind, rec.Name, err)
			}
			writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		if err := s.batchWrite(ctx, writes); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "wrote records", "count", len(records))
	return nil
}

func (s *Store) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	request := map[string][]types.WriteRequest{s.table: writes}

	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: request})
		if err != nil {
			return fmt.Errorf("batch write records: %w", err)
		}

		pending := out.UnprocessedItems[s.table]
		if len(pending) == 0 {
			return nil
		}
		if attempt == maxRetries {
			return fmt.Errorf("batch write records: %d items left unprocessed", len(pending))
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
		request = map[string][]types.WriteRequest{s.table: pending}
	}
}

func (s *Store) wait(ctx context.Context) error {
	if s.retryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("describe table: %w", err)
	}
	return nil
}

// EnsureTable creates the table when it does not exist. Deployed tables are
// provisioned elsewhere; this is for local DynamoDB.
func (s *Store) EnsureTable(ctx context.Context, maxWait time.Duration) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		s.logger.InfoContext(ctx, "table exists, skipping creation")
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table: %w", err)
	}

	s.logger.InfoContext(ctx, "creating table")
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, maxWait); err != nil {
		return fmt.Errorf("wait for table: %w", err)
	}
	return nil
}
