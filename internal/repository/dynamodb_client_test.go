package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
)

type fakeDynamo struct {
	getOut          *dynamodb.GetItemOutput
	getErr          error
	putErr          error
	deleteOut       *dynamodb.DeleteItemOutput
	deleteErr       error
	lastGetInput    *dynamodb.GetItemInput
	lastPutInput    *dynamodb.PutItemInput
	lastDeleteInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteInput = in
	return f.deleteOut, f.deleteErr
}

var (
	testKey = domain.SessionKey{BotName: "PizzaBot", BotAlias: "prod", UserID: "user-1"}
	fixedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
)

func testSession() *domain.Session {
	return &domain.Session{
		Key:               testKey,
		SessionID:         "sess-1",
		SessionAttributes: map[string]string{"crust": "thin"},
		DialogAction:      domain.NewDialogAction(domain.DialogStateElicitSlot, "OrderPizza", "Size", map[string]string{"Crust": "thin"}),
		Turn:              2,
		CreatedAt:         fixedAt,
		UpdatedAt:         fixedAt,
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedAt }
	return c
}

func sessionItem(t *testing.T, c *Client, s *domain.Session) map[string]types.AttributeValue {
	t.Helper()
	item, err := c.sessionItem(s)
	require.NoError(t, err)
	return item
}

func TestPut_WritesStateAndTTL(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	require.NoError(t, c.Put(context.Background(), testSession()))

	require.NotNil(t, db.lastPutInput)
	require.Equal(t, "test-table", *db.lastPutInput.TableName)
	item := db.lastPutInput.Item
	pk, err := strAttr(item, "PK")
	require.NoError(t, err)
	require.Equal(t, "SESSION#PizzaBot#prod#user-1", pk)
	sk, err := strAttr(item, "SK")
	require.NoError(t, err)
	require.Equal(t, skState, sk)
	ttl, err := intAttr(item, "ttl")
	require.NoError(t, err)
	require.EqualValues(t, fixedAt.Add(defaultSessionTTL).Unix(), ttl)
	turns, err := intAttr(item, "turns")
	require.NoError(t, err)
	require.Equal(t, 2, turns)
}

func TestPut_RejectsInvalidSession(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.Put(context.Background(), nil))

	s := testSession()
	s.SessionID = ""
	require.Error(t, c.Put(context.Background(), s))

	s = testSession()
	s.Key.UserID = "x"
	require.Error(t, c.Put(context.Background(), s))
}

func TestPut_Error(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("throttled")})
	err := c.Put(context.Background(), testSession())
	require.ErrorContains(t, err, "throttled")
}

func TestGet_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	db.getOut = &dynamodb.GetItemOutput{Item: sessionItem(t, c, testSession())}

	got, err := c.Get(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, testKey, got.Key)
	require.Equal(t, "sess-1", got.SessionID)
	require.Equal(t, "Size", got.DialogAction.SlotToElicit)
	require.Equal(t, map[string]string{"crust": "thin"}, got.SessionAttributes)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGet_NotFound(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, err := c.Get(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_ExpiredItemIsAbsent(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	item := sessionItem(t, c, testSession())
	item["ttl"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", fixedAt.Add(-time.Second).Unix())}
	db.getOut = &dynamodb.GetItemOutput{Item: item}

	_, err := c.Get(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_BadState(t *testing.T) {
	item := map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: sessionPK(testKey)},
		"SK":    &types.AttributeValueMemberS{Value: skState},
		"state": &types.AttributeValueMemberN{Value: "1"},
	}
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}})
	_, err := c.Get(context.Background(), testKey)
	require.ErrorContains(t, err, "not a string")
}

func TestDelete(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	db.deleteOut = &dynamodb.DeleteItemOutput{Attributes: sessionItem(t, c, testSession())}

	old, err := c.Delete(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, "sess-1", old.SessionID)
	require.Equal(t, "attribute_exists(PK)", *db.lastDeleteInput.ConditionExpression)
	require.Equal(t, types.ReturnValueAllOld, db.lastDeleteInput.ReturnValues)
}

func TestDelete_Missing(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{deleteErr: &types.ConditionalCheckFailedException{}})
	_, err := c.Delete(context.Background(), testKey)
	require.ErrorIs(t, err, ErrNotFound)

	c = mustNewClient(t, &fakeDynamo{deleteErr: errors.New("boom")})
	_, err = c.Delete(context.Background(), testKey)
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}
