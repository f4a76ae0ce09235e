package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDumpConfig(t *testing.T) {
	tests := []struct {
		cols []string
		want string
	}{
		{[]string{"id", "name"}, "ignore"},
		{[]string{"id", "name", "created_at"}, "created_at"},
		{[]string{"id", "name", "create_date"}, "create_date"},
		{[]string{"id", "name", "create_user", "create_date"}, "create_date"},
		{[]string{"id", "name", "updated_at"}, "updated_at"},
		{[]string{"id", "name", "update_user", "update_date"}, "update_date"},
		{[]string{"id", "name", "create_date", "update_date"}, "update_date"},
		{[]string{"id", "name", "create_user", "update_user", "create_date", "update_date"}, "update_date"},
	}

	for _, tt := range tests {
		got := InitDumpConfig("users", tt.cols)
		assert.Equal(t, tt.want, got.Value, "cols %v", tt.cols)
		assert.Equal(t, "users", got.TableName)
	}
}

func TestMergeDumpConfigs(t *testing.T) {
	defaults := []DumpConfig{
		{TableName: "groups", ColNames: []string{"id", "name"}, Value: "limited"},
		{TableName: "users", ColNames: []string{"id", "name", "updated_at"}, Value: "limited"},
	}
	saved := []DumpConfig{
		{TableName: "groups", ColNames: []string{"id", "name"}, Value: "limited"},
		{TableName: "users", ColNames: []string{"id", "name", "updated_at"}, Value: "updated_at"},
		{TableName: "dropped", Value: "ignore"},
	}

	merged := MergeDumpConfigs(defaults, saved)
	assert.Len(t, merged, 2)
	assert.Equal(t, "limited", merged[0].Value)
	assert.Equal(t, "updated_at", merged[1].Value)
	// defaults untouched
	assert.Equal(t, "limited", defaults[1].Value)
}

func TestDumpConfig_Policy(t *testing.T) {
	assert.True(t, DumpConfig{Value: DumpIgnore}.IsIgnored())
	assert.Equal(t, "", DumpConfig{Value: DumpLimited}.OrderBy())
	assert.Equal(t, "updated_at", DumpConfig{Value: "updated_at"}.OrderBy())
}

func TestSortDumpConfigs(t *testing.T) {
	configs := SortDumpConfigs([]DumpConfig{{TableName: "users"}, {TableName: "groups"}})
	assert.Equal(t, "groups", configs[0].TableName)
	assert.Equal(t, "users", configs[1].TableName)
}

func TestSnapshotResult_Increment(t *testing.T) {
	small := NewSnapshotResult("s", 3)
	small.Increment()
	assert.Equal(t, 0, small.Percent)
	assert.Equal(t, 1, small.Done)

	r := NewSnapshotResult("s", 20)
	for i := 0; i < 4; i++ {
		r.Increment()
	}
	assert.Equal(t, 20, r.Percent)
	assert.Equal(t, ResultProcessing, r.Status)

	r.Complete()
	assert.Equal(t, 100, r.Percent)
	assert.Equal(t, ResultComplete, r.Status)
}
