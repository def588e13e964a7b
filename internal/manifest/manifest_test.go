package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	fsjson "github.com/lgns/provisioner/internal/infra/filesystem/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	first  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	second = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestManifest_ActiveRecord(t *testing.T) {
	m := New("saigon", 2021)

	_, err := m.Require("GovernanceManager")
	assert.ErrorIs(t, err, ErrNotFound)

	m.Append(Record{Name: "GovernanceManager", Address: first})
	m.Append(Record{Name: "HistoryManager", Address: second})
	m.Append(Record{Name: "GovernanceManager", Address: second})

	record, err := m.Require("GovernanceManager")
	require.NoError(t, err)
	assert.Equal(t, second, record.Address, "later records supersede earlier ones")
	assert.Len(t, m.Records, 3, "records are never replaced")
	assert.Equal(t, []string{"GovernanceManager", "HistoryManager"}, m.Names())
	assert.Len(t, m.ActiveRecords(), 2)
}

func TestManifest_Executions(t *testing.T) {
	m := New("saigon", 2021)
	digest, err := Digest(second, true)
	require.NoError(t, err)

	assert.False(t, m.Executed(first, "setIsGame", digest))
	m.RecordExecution(Execution{Address: first, Method: "setIsGame", ArgsDigest: digest})
	assert.True(t, m.Executed(first, "setIsGame", digest))
	assert.False(t, m.Executed(second, "setIsGame", digest))
}

func TestManifest_Steps(t *testing.T) {
	m := New("saigon", 2021)
	assert.False(t, m.Completed("Manager"))

	m.MarkCompleted("Manager", time.Unix(1, 0))
	m.MarkCompleted("Manager", time.Unix(2, 0))
	assert.True(t, m.Completed("Manager"))
	require.Len(t, m.Steps, 1)
	assert.Equal(t, time.Unix(1, 0), m.Steps[0].CompletedAt, "first completion is kept")
}

func TestDigest(t *testing.T) {
	a, err := Digest("0x1e8b254b82912A8C9B6Eef118933d43630e2B4aD", 100, true)
	require.NoError(t, err)
	b, err := Digest(common.HexToAddress("0x1e8b254b82912a8c9b6eef118933d43630e2b4ad"), 100, true)
	require.NoError(t, err)
	assert.Equal(t, a, b, "address spelling must not change the digest")

	c, err := Digest("0x1e8b254b82912A8C9B6Eef118933d43630e2B4aD", 101, true)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestStore_LoadSave(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, fsjson.NewReader(), fsjson.NewWriter())

	m, err := store.Load("saigon", 2021)
	require.NoError(t, err)
	assert.Empty(t, m.Records)

	m.Append(Record{Name: "GovernanceManager", Contract: "GovernanceManager", Address: first})
	m.MarkCompleted("Manager", time.Now().UTC())
	require.NoError(t, store.Save(m))
	assert.FileExists(t, filepath.Join(root, "saigon", "manifest.json"))

	loaded, err := store.Load("saigon", 2021)
	require.NoError(t, err)
	record, err := loaded.Require("GovernanceManager")
	require.NoError(t, err)
	assert.Equal(t, first, record.Address)
	assert.True(t, loaded.Completed("Manager"))

	_, err = store.Load("saigon", 2020)
	assert.ErrorContains(t, err, "belongs to chain 2021")
}
