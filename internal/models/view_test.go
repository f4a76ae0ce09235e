package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDiffView_JSON(t *testing.T) {
	td := &TableDiff{
		TableName:      "user",
		PrimaryKeys:    []PrimaryKey{NewPrimaryKey(NumberValue("1"))},
		PrimaryColName: "id",
		ColNames:       []string{"name", "age"},
		RowDiffs1: RowDiffs{"1": {
			"name": Deleted(StringValue("John")),
			"age":  NoValue(),
		}},
		RowDiffs2: RowDiffs{"1": {
			"name": NoValue(),
			"age":  Added(NumberValue("39")),
		}},
	}
	diff := NewSnapshotDiff("d1", "s1", "s2", []*TableDiff{td})

	data, err := json.Marshal(diff.View())
	require.NoError(t, err)

	expected := `{
		"diffId": "d1",
		"snapshotId1": "s1",
		"snapshotId2": "s2",
		"tableDiffs": [{
			"tableName": "user",
			"primaryColName": "id",
			"primaryValues": ["1"],
			"colNames": ["name", "age"],
			"rowDiffs1": {"1": {"name": {"status": "deleted", "value": "\"John\""}, "age": {}}},
			"rowDiffs2": {"1": {"name": {}, "age": {"status": "added", "value": "39"}}}
		}]
	}`
	assert.JSONEq(t, expected, string(data))
}

func TestColDiffView(t *testing.T) {
	assert.Equal(t, ColDiffView{}, NoValue().View())
	assert.Equal(t, ColDiffView{Status: StatusStay, Value: "<null>"}, Stay(NullValue{}).View())
	assert.Equal(t, ColDiffView{Status: StatusAdded, Value: "binary"}, Added(BinaryValue("\x00")).View())
}

func TestSnapshotDiffView_Empty(t *testing.T) {
	data, err := json.Marshal(NewSnapshotDiff("d1", "s1", "s2", nil).View())
	require.NoError(t, err)
	assert.JSONEq(t, `{"diffId":"d1","snapshotId1":"s1","snapshotId2":"s2","tableDiffs":[]}`, string(data))
}
