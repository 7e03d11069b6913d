// Package dynamodb persists notes and saved maps in a single DynamoDB
// table. Items are partitioned per owner: PK "USER#<ownerID>" with sort
// keys "NOTE#<id>" and "MAP#<name>".
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mindmesh/domain/core/entities"
	"mindmesh/domain/core/valueobjects"
	pkgerrors "mindmesh/pkg/errors"
)

// NoteRepository implements ports.NoteRepository on DynamoDB.
type NoteRepository struct {
	client    *dynamodb.Client
	tableName string
	breaker   *Breaker
	logger    *zap.Logger
}

// NewNoteRepository creates a DynamoDB-backed note repository.
func NewNoteRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *NoteRepository {
	return &NoteRepository{
		client:    client,
		tableName: tableName,
		breaker:   NewBreaker("dynamodb-notes", logger),
		logger:    logger,
	}
}

// noteItem is the DynamoDB item shape for a note.
type noteItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	NoteID     string `dynamodbav:"NoteID"`
	OwnerID    string `dynamodbav:"OwnerID"`
	Title      string `dynamodbav:"Title"`
	Content    string `dynamodbav:"Content"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func notePK(ownerID string) string { return fmt.Sprintf("USER#%s", ownerID) }
func noteSK(id string) string      { return fmt.Sprintf("NOTE#%s", id) }

// Save upserts a note.
func (r *NoteRepository) Save(ctx context.Context, note *entities.Note) error {
	item := noteItem{
		PK:         notePK(note.OwnerID()),
		SK:         noteSK(note.ID().String()),
		EntityType: "NOTE",
		NoteID:     note.ID().String(),
		OwnerID:    note.OwnerID(),
		Title:      note.Title(),
		Content:    note.Content(),
		CreatedAt:  note.CreatedAt().Format(time.RFC3339),
		UpdatedAt:  note.UpdatedAt().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}

	_, err = r.breaker.Execute(func() (any, error) {
		return r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		})
	})
	if err != nil {
		r.logger.Error("failed to save note",
			zap.String("noteID", note.ID().String()),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("save note", err)
	}
	return nil
}

// Delete removes a note. Deleting an absent note is not an error.
func (r *NoteRepository) Delete(ctx context.Context, ownerID string, id valueobjects.NoteID) error {
	_, err := r.breaker.Execute(func() (any, error) {
		return r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]dbtypes.AttributeValue{
				"PK": &dbtypes.AttributeValueMemberS{Value: notePK(ownerID)},
				"SK": &dbtypes.AttributeValueMemberS{Value: noteSK(id.String())},
			},
		})
	})
	if err != nil {
		r.logger.Error("failed to delete note",
			zap.String("noteID", id.String()),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("delete note", err)
	}
	return nil
}

// FindByOwner queries all of an owner's notes and returns them most
// recently updated first. The sort happens client-side because UpdatedAt
// is not part of the key schema.
func (r *NoteRepository) FindByOwner(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(notePK(ownerID))).
		And(expression.Key("SK").BeginsWith("NOTE#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build note query: %w", err)
	}

	var items []map[string]dbtypes.AttributeValue
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	for {
		out, err := r.breaker.Execute(func() (any, error) {
			return r.client.Query(ctx, input)
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query notes", err)
		}
		page := out.(*dynamodb.QueryOutput)
		items = append(items, page.Items...)
		if page.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	notes := make([]*entities.Note, 0, len(items))
	for _, raw := range items {
		var item noteItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal note: %w", err)
		}
		note, err := reconstructNote(item)
		if err != nil {
			r.logger.Warn("skipping corrupt note item",
				zap.String("sk", item.SK),
				zap.Error(err),
			)
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt().After(notes[j].UpdatedAt())
	})
	return notes, nil
}

func reconstructNote(item noteItem) (*entities.Note, error) {
	id, err := valueobjects.ParseNoteID(item.NoteID)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated at: %w", err)
	}
	return entities.ReconstructNote(id, item.OwnerID, item.Title, item.Content, createdAt, updatedAt)
}
