package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"lex-dialog/internal/domain"
)

const skState = "STATE#"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client wraps a DynamoDB table holding one item per session.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, ttl: defaultSessionTTL, now: time.Now}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(k domain.SessionKey) string {
	return "SESSION#" + k.BotName + "#" + k.BotAlias + "#" + k.UserID
}

func (c *Client) itemKey(k domain.SessionKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(k)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// ttlValue returns the Unix time at which an idle session expires.
func (c *Client) ttlValue() int64 {
	return c.now().Add(c.ttl).Unix()
}

// Get reads the session with a consistent read. Items past their ttl are
// treated as absent even before DynamoDB removes them.
func (c *Client) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return c.itemToSession(key, out.Item)
}

// Put writes the whole session state and pushes its ttl forward.
func (c *Client) Put(ctx context.Context, s *domain.Session) error {
	if err := validateSession(s); err != nil {
		return err
	}
	item, err := c.sessionItem(s)
	if err != nil {
		return err
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

// Delete removes the session item only if it exists and returns the old
// state.
func (c *Client) Delete(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 c.itemKey(key),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: Delete: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return nil, ErrNotFound
	}
	return c.itemToSession(key, out.Attributes)
}

func (c *Client) sessionItem(s *domain.Session) (map[string]types.AttributeValue, error) {
	state, err := encodeSession(s)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(s.Key)},
		"SK":        &types.AttributeValueMemberS{Value: skState},
		"sessionId": &types.AttributeValueMemberS{Value: s.SessionID},
		"state":     &types.AttributeValueMemberS{Value: string(state)},
		"turns":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", s.Turn)},
		"updatedAt": &types.AttributeValueMemberS{Value: s.UpdatedAt.UTC().Format(time.RFC3339)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", c.ttlValue())},
	}, nil
}

// itemToSession converts a DynamoDB attribute map to a Session.
func (c *Client) itemToSession(key domain.SessionKey, item map[string]types.AttributeValue) (*domain.Session, error) {
	if expires, err := intAttr(item, "ttl"); err == nil && int64(expires) <= c.now().Unix() {
		return nil, ErrNotFound
	}
	state, err := strAttr(item, "state")
	if err != nil {
		return nil, err
	}
	s, err := decodeSession(key, []byte(state))
	if err != nil {
		return nil, err
	}
	if turns, err := intAttr(item, "turns"); err == nil {
		s.Turn = turns
	}
	return s, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
