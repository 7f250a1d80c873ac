package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

// Boards can hold a bounded number of layers; anything past this is noise.
const maxLayersPerBoard = 1100

type DynamoBoardStore struct {
	client    *dynamodb.Client
	tableName string
}

var _ store.BoardStore = (*DynamoBoardStore)(nil)

func NewDynamoBoardStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoBoardStore, error) {
	client, err := newDynamoDBClient(ctx, devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoBoardStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoBoardStore) EnsureBoard(ctx context.Context, boardId string) (bool, error) {
	db := dynamoBoard{PK: boardPK(boardId), SK: metaSK, Created: time.Now().Unix(), LayerOrder: []string{}}
	return ensureItem(dynamoStore, ctx, db)
}

func (dynamoStore *DynamoBoardStore) GetBoardLayers(ctx context.Context, boardId string) ([]models.LayerRecord, error) {
	dynamoLayers, err := queryAllByPK[dynamoLayer](dynamoStore, ctx, boardPK(boardId), layerPrefix, true, maxLayersPerBoard)
	if err != nil {
		return nil, err
	}

	records := make([]models.LayerRecord, 0, len(dynamoLayers))
	for _, dl := range dynamoLayers {
		records = append(records, layerRecordFromDynamo(dl))
	}
	return records, nil
}

func (dynamoStore *DynamoBoardStore) GetLayerOrder(ctx context.Context, boardId string) ([]string, error) {
	db, err := getItem[dynamoBoard](dynamoStore, ctx, boardPK(boardId), metaSK, true)
	if errors.Is(err, store.ErrItemNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if db.LayerOrder == nil {
		db.LayerOrder = []string{}
	}
	return db.LayerOrder, nil
}

// WriteLayerBatch writes up to 25 records; tombstones become deletes. Records
// DynamoDB did not process are returned for a later retry.
func (dynamoStore *DynamoBoardStore) WriteLayerBatch(ctx context.Context, records []models.LayerRecord) ([]models.LayerRecord, error) {
	var writeRequests []types.WriteRequest
	for _, record := range records {
		dl := layerRecordToDynamo(record)
		if record.Deleted {
			writeRequests = append(writeRequests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: dl.PK},
						"SK": &types.AttributeValueMemberS{Value: dl.SK},
					},
				},
			})
			continue
		}

		avMap, err := attributevalue.MarshalMap(dl)
		if err != nil {
			return nil, fmt.Errorf("marshal error: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: avMap},
		})
	}

	unprocessed, err := writeBatchRequests[dynamoLayer](dynamoStore, ctx, writeRequests)

	unbatched := make([]models.LayerRecord, 0, len(unprocessed))
	for _, u := range unprocessed {
		unbatched = append(unbatched, layerRecordFromDynamo(u))
	}
	return unbatched, err
}

func (dynamoStore *DynamoBoardStore) SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error {
	db := dynamoBoard{PK: boardPK(boardId), SK: metaSK, LayerOrder: layerIds}
	if db.LayerOrder == nil {
		db.LayerOrder = []string{}
	}
	return updateItem(dynamoStore, ctx, db, []string{"LayerOrder"}, "OrderVersion")
}

func (dynamoStore *DynamoBoardStore) IncrementBoardEdits(ctx context.Context, boardId string, count int) error {
	return incrementCounter(dynamoStore, ctx, boardPK(boardId), metaSK, "Edits", count)
}

func (dynamoStore *DynamoBoardStore) DeleteBoard(ctx context.Context, boardId string) error {
	return batchDeleteByPKThrottled(dynamoStore, ctx, boardPK(boardId), 50*time.Millisecond)
}
