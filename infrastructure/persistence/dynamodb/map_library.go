package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mindmesh/domain/mapdoc"
	pkgerrors "mindmesh/pkg/errors"
)

// MapLibrary implements ports.MapLibrary on DynamoDB. The map name is the
// sort key, so saving under an existing name replaces the earlier map.
type MapLibrary struct {
	client    *dynamodb.Client
	tableName string
	breaker   *Breaker
	logger    *zap.Logger
}

// NewMapLibrary creates a DynamoDB-backed saved-map library.
func NewMapLibrary(client *dynamodb.Client, tableName string, logger *zap.Logger) *MapLibrary {
	return &MapLibrary{
		client:    client,
		tableName: tableName,
		breaker:   NewBreaker("dynamodb-maps", logger),
		logger:    logger,
	}
}

// mapItem is the DynamoDB item shape for a saved map. The graph payload
// is stored as a JSON document in a string attribute.
type mapItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MapID      string `dynamodbav:"MapID"`
	Name       string `dynamodbav:"Name"`
	Data       string `dynamodbav:"Data"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	EdgeCount  int    `dynamodbav:"EdgeCount"`
	Timestamp  string `dynamodbav:"Timestamp"`
}

func mapSK(name string) string { return fmt.Sprintf("MAP#%s", name) }

// Put stores a saved map, replacing any earlier map with the same name.
func (l *MapLibrary) Put(ctx context.Context, ownerID string, rec mapdoc.SavedMap) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal map data: %w", err)
	}

	item := mapItem{
		PK:         notePK(ownerID),
		SK:         mapSK(rec.Name),
		EntityType: "MAP",
		MapID:      rec.ID,
		Name:       rec.Name,
		Data:       string(data),
		NodeCount:  len(rec.Data.Nodes),
		EdgeCount:  len(rec.Data.Edges),
		Timestamp:  rec.Timestamp.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal map item: %w", err)
	}

	_, err = l.breaker.Execute(func() (any, error) {
		return l.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(l.tableName),
			Item:      av,
		})
	})
	if err != nil {
		l.logger.Error("failed to save map",
			zap.String("name", rec.Name),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("save map", err)
	}
	return nil
}

// Get fetches a saved map by name.
func (l *MapLibrary) Get(ctx context.Context, ownerID, name string) (mapdoc.SavedMap, error) {
	out, err := l.breaker.Execute(func() (any, error) {
		return l.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(l.tableName),
			Key: map[string]dbtypes.AttributeValue{
				"PK": &dbtypes.AttributeValueMemberS{Value: notePK(ownerID)},
				"SK": &dbtypes.AttributeValueMemberS{Value: mapSK(name)},
			},
		})
	})
	if err != nil {
		return mapdoc.SavedMap{}, pkgerrors.NewDatabaseError("get map", err)
	}

	res := out.(*dynamodb.GetItemOutput)
	if res.Item == nil {
		return mapdoc.SavedMap{}, pkgerrors.NewNotFoundError("saved map")
	}

	var item mapItem
	if err := attributevalue.UnmarshalMap(res.Item, &item); err != nil {
		return mapdoc.SavedMap{}, fmt.Errorf("unmarshal map item: %w", err)
	}
	return decodeMapItem(item)
}

// List returns summaries of the owner's saved maps, newest first.
func (l *MapLibrary) List(ctx context.Context, ownerID string) ([]mapdoc.Info, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(notePK(ownerID))).
		And(expression.Key("SK").BeginsWith("MAP#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build map query: %w", err)
	}

	out, err := l.breaker.Execute(func() (any, error) {
		return l.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(l.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list maps", err)
	}

	res := out.(*dynamodb.QueryOutput)
	infos := make([]mapdoc.Info, 0, len(res.Items))
	for _, raw := range res.Items {
		var item mapItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal map item: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, item.Timestamp)
		if err != nil {
			l.logger.Warn("skipping map item with bad timestamp",
				zap.String("sk", item.SK),
				zap.Error(err),
			)
			continue
		}
		infos = append(infos, mapdoc.Info{
			ID:        item.MapID,
			Name:      item.Name,
			NodeCount: item.NodeCount,
			EdgeCount: item.EdgeCount,
			Timestamp: ts,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

// Delete removes a saved map by name. Deleting an absent map is not an
// error.
func (l *MapLibrary) Delete(ctx context.Context, ownerID, name string) error {
	_, err := l.breaker.Execute(func() (any, error) {
		return l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(l.tableName),
			Key: map[string]dbtypes.AttributeValue{
				"PK": &dbtypes.AttributeValueMemberS{Value: notePK(ownerID)},
				"SK": &dbtypes.AttributeValueMemberS{Value: mapSK(name)},
			},
		})
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete map", err)
	}
	return nil
}

func decodeMapItem(item mapItem) (mapdoc.SavedMap, error) {
	var data mapdoc.GraphData
	if err := json.Unmarshal([]byte(item.Data), &data); err != nil {
		return mapdoc.SavedMap{}, fmt.Errorf("decode map data: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, item.Timestamp)
	if err != nil {
		return mapdoc.SavedMap{}, fmt.Errorf("parse map timestamp: %w", err)
	}
	return mapdoc.SavedMap{
		ID:        item.MapID,
		Name:      item.Name,
		Data:      data,
		Timestamp: ts,
	}, nil
}
