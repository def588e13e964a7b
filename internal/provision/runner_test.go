package provision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lgns/provisioner/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managerStep(runs *int) Step {
	return Step{
		Name: "Manager",
		Validate: func(p configs.Params) error {
			return p.Manager.Validate()
		},
		Run: func(ctx context.Context, pc *Context) error {
			*runs++
			_, err := pc.Deploy(ctx, "GovernanceManager", DeployOptions{Args: []any{pc.Params().Manager.Owner, pc.Params().Manager.FeeSetter}})
			return err
		},
	}
}

func houseStep(runs *int) Step {
	return Step{
		Name:         "House",
		Dependencies: []string{"Manager"},
		Requires:     []string{"GovernanceManager"},
		Run: func(ctx context.Context, pc *Context) error {
			*runs++
			gm, err := pc.Require("GovernanceManager")
			if err != nil {
				return err
			}
			house, err := pc.Deploy(ctx, "House", DeployOptions{Args: []any{gm.Address}})
			if err != nil {
				return err
			}
			_, err = pc.Execute(ctx, Invocation{Target: "GovernanceManager", Method: "setHouse", Args: []any{house.Address}, Getter: "house", Want: house.Address})
			return err
		},
	}
}

func TestRunner_RunTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc, backend, _ := newTestContext(t)
	pc.Target.Params.Manager = configs.ManagerParams{Owner: owner, FeeSetter: setter}

	var managerRuns, houseRuns int
	graph, err := NewGraph(managerStep(&managerRuns), houseStep(&houseRuns))
	require.NoError(t, err)
	runner := NewRunner(graph)

	report, err := runner.Run(ctx, pc, Options{})
	require.NoError(t, err)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, OutcomeExecuted, report.Steps[0].Outcome)
	assert.Equal(t, OutcomeExecuted, report.Steps[1].Outcome)

	records := len(pc.Manifest.Records)
	mutations := backend.Mutations()

	report, err = runner.Run(ctx, pc, Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Steps[0].Outcome)
	assert.Equal(t, OutcomeSkipped, report.Steps[1].Outcome)
	assert.Equal(t, 1, managerRuns)

	// Forcing a rerun re-checks state but sends nothing new.
	_, err = runner.Run(ctx, pc, Options{Rerun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, houseRuns)
	assert.Equal(t, records, len(pc.Manifest.Records))
	assert.Equal(t, mutations, backend.Mutations())
}

func TestRunner_InvalidConfigurationBeforeAnyCall(t *testing.T) {
	pc, backend, _ := newTestContext(t)
	pc.Target.Params.Manager = configs.ManagerParams{Owner: owner}

	var managerRuns, houseRuns int
	graph, err := NewGraph(managerStep(&managerRuns), houseStep(&houseRuns))
	require.NoError(t, err)

	report, err := NewRunner(graph).Run(context.Background(), pc, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, configs.ErrInvalidConfiguration)
	assert.Equal(t, "step Manager: owner or feeSetter not set", err.Error())
	assert.Zero(t, managerRuns)
	assert.Zero(t, backend.Mutations())
	assert.Zero(t, backend.Calls)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, OutcomeFailed, report.Steps[0].Outcome)
}

func TestRunner_MissingDependencyBeforeAnyCall(t *testing.T) {
	pc, backend, _ := newTestContext(t)

	var houseRuns int
	graph, err := NewGraph(houseStep(&houseRuns))
	require.NoError(t, err)

	_, err = NewRunner(graph).Run(context.Background(), pc, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.EqualError(t, err, "step House: missing dependency: GovernanceManager not deployed")
	assert.Zero(t, houseRuns)
	assert.Zero(t, backend.Mutations())
	assert.Zero(t, backend.Calls)
}

func TestRunner_FirstFailureAborts(t *testing.T) {
	pc, backend, _ := newTestContext(t)
	pc.Target.Params.Manager = configs.ManagerParams{Owner: owner, FeeSetter: setter}
	backend.FailOn("GovernanceManager.setHouse", errors.New("execution reverted"))

	var managerRuns, houseRuns, laterRuns int
	later := Step{
		Name:         "Roulette",
		Dependencies: []string{"House"},
		Run: func(context.Context, *Context) error {
			laterRuns++
			return nil
		},
	}
	graph, err := NewGraph(managerStep(&managerRuns), houseStep(&houseRuns), later)
	require.NoError(t, err)

	report, err := NewRunner(graph).Run(context.Background(), pc, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalCall)
	assert.Contains(t, err.Error(), "step House")
	assert.Zero(t, laterRuns)
	assert.False(t, pc.Manifest.Completed("House"))
	assert.True(t, pc.Manifest.Completed("Manager"))

	require.Len(t, report.Steps, 2)
	assert.Equal(t, OutcomeFailed, report.Steps[1].Outcome)
}

func TestRunner_RepeatableStepsAlwaysRun(t *testing.T) {
	pc, _, _ := newTestContext(t)

	var runs int
	graph, err := NewGraph(Step{
		Name:       "VerifyContracts",
		RunLast:    true,
		Repeatable: true,
		Run: func(context.Context, *Context) error {
			runs++
			return nil
		},
	})
	require.NoError(t, err)

	runner := NewRunner(graph)
	clock := time.Unix(1700000000, 0).UTC()
	runner.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var snapshots [][]byte
	for range 2 {
		_, err := runner.Run(context.Background(), pc, Options{})
		require.NoError(t, err)

		data, err := json.Marshal(pc.Manifest)
		require.NoError(t, err)
		snapshots = append(snapshots, data)
	}
	assert.Equal(t, 2, runs)
	assert.JSONEq(t, string(snapshots[0]), string(snapshots[1]), "repeatable steps leave the manifest unchanged")
}

func TestRunner_CancelledContext(t *testing.T) {
	pc, _, _ := newTestContext(t)

	var runs int
	graph, err := NewGraph(managerStep(&runs))
	require.NoError(t, err)
	pc.Target.Params.Manager = configs.ManagerParams{Owner: owner, FeeSetter: setter}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRunner(graph).Run(ctx, pc, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runs)
}
