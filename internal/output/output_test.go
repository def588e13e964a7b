package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleManifest() *manifest.Manifest {
	m := manifest.New("saigon", 2021)
	m.Append(manifest.Record{
		Name:       "GovernanceManager",
		Contract:   "GovernanceManager",
		Address:    common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		TxHash:     common.HexToHash("0x01"),
		Step:       "Manager",
		DeployedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	m.Append(manifest.Record{
		Name:     "Wrapper:0x1e8b254b82912A8C9B6Eef118933d43630e2B4aD",
		Contract: "WrappedAsset",
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000f1"),
		Step:     "CreateTokenContracts",
		External: true,
	})
	m.MarkCompleted("Manager", time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC))
	return m
}

func TestRenderManifest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).RenderManifest(sampleManifest()))

	out := buf.String()
	assert.Contains(t, out, "saigon (chain 2021)")
	assert.Contains(t, out, "GovernanceManager")
	assert.Contains(t, out, common.HexToAddress("0x00000000000000000000000000000000000000a1").Hex())
	assert.Contains(t, out, "(external)")
	assert.Contains(t, out, "2025-03-01 12:00:00")
	assert.NotContains(t, out, "\x1b[", "colour disabled")
}

func TestRenderManifest_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).RenderManifest(manifest.New("ronin", 2020)))
	assert.Equal(t, "No contracts recorded for ronin\n", buf.String())
}

func TestRenderPlan(t *testing.T) {
	plan := []provision.Step{
		{Name: "Manager"},
		{Name: "House"},
		{Name: "VerifyContracts", Repeatable: true},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).RenderPlan(plan, sampleManifest(), false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], "Manager")
	assert.Contains(t, lines[2], "completed, skipped")
	assert.Contains(t, lines[3], "pending")
	assert.Contains(t, lines[4], "runs every time")
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	err := NewRenderer(&buf, false).RenderReport(provision.Report{Steps: []provision.StepReport{
		{Name: "Manager", Outcome: provision.OutcomeSkipped, Reason: "already completed"},
		{Name: "House", Outcome: provision.OutcomeFailed, Reason: "step House: missing dependency: GovernanceManager not deployed"},
	}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Manager: already completed")
	assert.Contains(t, buf.String(), "House: step House: missing dependency")
}

func TestExport(t *testing.T) {
	data, err := Export(sampleManifest())
	require.NoError(t, err)

	var model Model
	require.NoError(t, yaml.Unmarshal(data, &model))

	assert.Equal(t, "saigon", model.Network)
	assert.Equal(t, uint64(2021), model.ChainID)
	require.Len(t, model.Contracts, 2)

	gm := model.Contracts["GovernanceManager"]
	assert.Equal(t, common.HexToAddress("0xa1").Hex(), gm.Address)
	assert.NotEmpty(t, gm.TxHash)

	wrapper := model.Contracts["Wrapper:0x1e8b254b82912A8C9B6Eef118933d43630e2B4aD"]
	assert.True(t, wrapper.External)
	assert.Empty(t, wrapper.TxHash)

	assert.Equal(t, "2025-03-01T12:00:01Z", model.Steps["Manager"])
}
