package dynamo

import (
	"strings"

	"github.com/zlnvch/whiteboard/models"
)

const (
	boardPrefix = "BOARD#"
	layerPrefix = "LAYER#"
	metaSK      = "META"
)

func boardPK(boardId string) string {
	return boardPrefix + boardId
}

func layerSK(layerId string) string {
	return layerPrefix + layerId
}

type dynamoLayer struct {
	PK   string `dynamodbav:"PK"`
	SK   string `dynamodbav:"SK"`
	Data []byte `dynamodbav:"Data"`
}

// Map domain LayerRecord -> Dynamo
func layerRecordToDynamo(lr models.LayerRecord) dynamoLayer {
	return dynamoLayer{
		PK:   boardPK(lr.BoardId),
		SK:   layerSK(lr.LayerId),
		Data: lr.Data,
	}
}

// Map Dynamo -> domain LayerRecord. Delete requests come back with keys only,
// so an item without data is a tombstone.
func layerRecordFromDynamo(dl dynamoLayer) models.LayerRecord {
	return models.LayerRecord{
		BoardId: strings.TrimPrefix(dl.PK, boardPrefix),
		LayerId: strings.TrimPrefix(dl.SK, layerPrefix),
		Data:    dl.Data,
		Deleted: len(dl.Data) == 0,
	}
}

type dynamoBoard struct {
	PK           string   `dynamodbav:"PK"`
	SK           string   `dynamodbav:"SK"`
	Created      int64    `dynamodbav:"Created"`
	LayerOrder   []string `dynamodbav:"LayerOrder"`
	OrderVersion int      `dynamodbav:"OrderVersion"`
	Edits        int      `dynamodbav:"Edits"`
}
