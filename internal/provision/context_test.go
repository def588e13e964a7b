package provision

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/artifacts"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/provision/provisiontest"
	"github.com/lgns/provisioner/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	owner    = "0x00000000000000000000000000000000000000a1"
	setter   = "0x00000000000000000000000000000000000000a2"
)

func testContracts() *artifacts.Store {
	return artifacts.New(
		provisiontest.MustContract("GovernanceManager",
			"constructor(address,address)",
			"setHouse(address)",
			"house()(address)",
			"setIsGame(address,bool)",
			"isGame(address)(bool)",
		),
		provisiontest.MustContract("House", "constructor(address)", "enableCloning()"),
	)
}

func newTestContext(t *testing.T) (*Context, *provisiontest.Chain, *provisiontest.Store) {
	t.Helper()

	backend := provisiontest.NewChain(deployer)
	store := &provisiontest.Store{}
	pc := &Context{
		Target:    configs.Target{Name: "saigon", Network: configs.Network{ChainID: 2021}},
		Manifest:  manifest.New("saigon", 2021),
		Chain:     backend,
		Artifacts: testContracts(),
		Store:     store,
		now:       func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}
	pc.step = "Test"

	return pc, backend, store
}

func TestContext_DeployReusesMatchingRecord(t *testing.T) {
	ctx := context.Background()
	pc, backend, store := newTestContext(t)

	first, err := pc.Deploy(ctx, "GovernanceManager", DeployOptions{Args: []any{owner, setter}})
	require.NoError(t, err)
	assert.Equal(t, "Test", first.Step)
	assert.Equal(t, 1, store.Saves)

	// Checksum spelling of the same owner must not trigger a redeploy.
	again, err := pc.Deploy(ctx, "GovernanceManager", DeployOptions{Args: []any{common.HexToAddress(owner).Hex(), setter}})
	require.NoError(t, err)
	assert.Equal(t, first.Address, again.Address)
	assert.Len(t, backend.Deployments, 1)

	changed, err := pc.Deploy(ctx, "GovernanceManager", DeployOptions{Args: []any{setter, setter}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Address, changed.Address)
	assert.Len(t, backend.Deployments, 2)
	assert.Len(t, pc.Manifest.Records, 2, "redeploys append a new record")

	active, ok := pc.Manifest.Active("GovernanceManager")
	require.True(t, ok)
	assert.Equal(t, changed.Address, active.Address)
}

func TestContext_DeployFailure(t *testing.T) {
	pc, backend, _ := newTestContext(t)
	backend.FailOn("deploy:House", errors.New("insufficient funds"))

	_, err := pc.Deploy(context.Background(), "House", DeployOptions{Args: []any{owner}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalCall)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Empty(t, pc.Manifest.Records)
}

func TestContext_ExecuteWithGetter(t *testing.T) {
	ctx := context.Background()
	pc, backend, _ := newTestContext(t)

	_, err := pc.Deploy(ctx, "GovernanceManager", DeployOptions{Args: []any{owner, setter}})
	require.NoError(t, err)
	house, err := pc.Deploy(ctx, "House", DeployOptions{Args: []any{owner}})
	require.NoError(t, err)

	inv := Invocation{Target: "GovernanceManager", Method: "setHouse", Args: []any{house.Address}, Getter: "house", Want: house.Address}

	sent, err := pc.Execute(ctx, inv)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = pc.Execute(ctx, inv)
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Len(t, backend.Sent("setHouse"), 1)
	assert.Len(t, pc.Manifest.Executions, 1)
}

func TestContext_ExecuteWithoutGetterUsesManifest(t *testing.T) {
	ctx := context.Background()
	pc, backend, _ := newTestContext(t)

	_, err := pc.Deploy(ctx, "House", DeployOptions{Args: []any{owner}})
	require.NoError(t, err)

	inv := Invocation{Target: "House", Method: "enableCloning", Getter: "isImplementation", Want: true}
	for range 2 {
		_, err := pc.Execute(ctx, inv)
		require.NoError(t, err)
	}

	assert.Len(t, backend.Sent("enableCloning"), 1)
}

func TestContext_ExecuteMissingTarget(t *testing.T) {
	pc, backend, _ := newTestContext(t)

	_, err := pc.Execute(context.Background(), Invocation{Target: "GovernanceManager", Method: "setHouse", Args: []any{owner}})

	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GovernanceManager", missing.Name)
	assert.Equal(t, "Test", missing.Step)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Zero(t, backend.Mutations())
	assert.Zero(t, backend.Calls)
}

func TestContext_Register(t *testing.T) {
	pc, _, store := newTestContext(t)
	wrapper := common.HexToAddress("0x00000000000000000000000000000000000000f1")

	require.NoError(t, pc.Register("Wrapper:RON", "WrappedAsset", wrapper))
	require.NoError(t, pc.Register("Wrapper:RON", "WrappedAsset", wrapper))

	require.Len(t, pc.Manifest.Records, 1)
	assert.True(t, pc.Manifest.Records[0].External)
	assert.Equal(t, 1, store.Saves)
}

func TestContext_VerifyWithoutVerifier(t *testing.T) {
	pc, _, _ := newTestContext(t)

	_, err := pc.Verify(context.Background(), []verify.Item{{Name: "House"}})
	assert.ErrorIs(t, err, errNoVerifier)
}

func TestSameValue(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
		same bool
	}{
		{"address spellings", common.HexToAddress(owner), "0x00000000000000000000000000000000000000A1", true},
		{"big int and string", big.NewInt(100), "100", true},
		{"big int and uint64", big.NewInt(100), uint64(100), true},
		{"different numbers", big.NewInt(100), uint64(101), false},
		{"bools", true, true, true},
		{"nil", nil, nil, true},
		{"nil and value", nil, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, SameValue(tt.got, tt.want))
		})
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(common.Address{}))
	assert.True(t, IsZero(new(big.Int)))
	assert.True(t, IsZero(uint8(0)))
	assert.True(t, IsZero(false))
	assert.False(t, IsZero(big.NewInt(100)))
	assert.False(t, IsZero(common.HexToAddress(owner)))
}
