package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColDiff_JSON(t *testing.T) {
	tests := []ColDiff{
		NoValue(),
		Stay(StringValue("John")),
		Added(NumberValue("39")),
		Deleted(BinaryValue("\x01\x02")),
	}

	for _, d := range tests {
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var out ColDiff
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, d, out)
	}
}

func TestColDiff_UnmarshalRejectsMissingValue(t *testing.T) {
	var d ColDiff
	assert.Error(t, json.Unmarshal([]byte(`{"status":"added"}`), &d))
	assert.Error(t, json.Unmarshal([]byte(`{"status":"moved"}`), &d))
}

func TestColDiff_Constructors(t *testing.T) {
	var zero ColDiff
	assert.Equal(t, StatusNone, zero.Status())
	assert.Nil(t, zero.Value())
	assert.True(t, zero.Equal(NoValue()))

	d := Deleted(StringValue("John"))
	assert.Equal(t, StatusDeleted, d.Status())
	assert.Equal(t, StringValue("John"), d.Value())
	assert.True(t, d.Equal(Deleted(StringValue("John"))))
	assert.False(t, d.Equal(Added(StringValue("John"))))
	assert.False(t, d.Equal(Deleted(StringValue("Jane"))))

	assert.Panics(t, func() { Stay(nil) })
	assert.Panics(t, func() { Added(nil) })
}

func TestTableDiff_IsEmpty(t *testing.T) {
	td := &TableDiff{RowDiffs1: RowDiffs{}, RowDiffs2: RowDiffs{}}
	assert.True(t, td.IsEmpty())

	td.RowDiffs2["1"] = map[string]ColDiff{"name": Added(StringValue("John"))}
	assert.False(t, td.IsEmpty())
}

func TestNewSnapshotDiff(t *testing.T) {
	d := NewSnapshotDiff("d1", "s1", "s2", nil)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, "s1", d.SnapshotID1)
	assert.Equal(t, "s2", d.SnapshotID2)
	assert.NotNil(t, d.TableDiffs)
	assert.Empty(t, d.TableDiffs)
}
