package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/artifacts"
	"github.com/lgns/provisioner/internal/chain"
	"github.com/lgns/provisioner/internal/logger"
	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/verify"
)

var errNoVerifier = errors.New("no verifier configured")

type (
	Chain interface {
		From() common.Address
		Deploy(ctx context.Context, contract artifacts.Contract, args ...any) (chain.Receipt, error)
		Transact(ctx context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) (chain.Receipt, error)
		Call(ctx context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) ([]any, error)
	}

	Artifacts interface {
		Get(name string) (artifacts.Contract, error)
	}

	ManifestStore interface {
		Save(m *manifest.Manifest) error
	}

	Verifier interface {
		Submit(ctx context.Context, items []verify.Item) []verify.Result
	}

	// Context is the explicit state threaded through every step of a run.
	Context struct {
		Target    configs.Target
		Manifest  *manifest.Manifest
		Chain     Chain
		Artifacts Artifacts
		Store     ManifestStore
		Verifier  Verifier
		Logger    *slog.Logger

		step string
		now  func() time.Time
	}

	DeployOptions struct {
		// Contract is the artifact name; it defaults to the manifest name.
		Contract string
		Args     []any
	}

	// Invocation describes a state-changing call and how to tell it is already applied.
	Invocation struct {
		Target string
		Method string
		Args   []any
		// Getter is a view method whose result is compared with Want before sending.
		// When the contract has no such method the manifest execution log is used.
		Getter     string
		GetterArgs []any
		Want       any
	}
)

func (pc *Context) Step() string {
	return pc.step
}

func (pc *Context) Params() configs.Params {
	return pc.Target.Params
}

// Log returns the logger of the running step.
func (pc *Context) Log() *slog.Logger {
	if pc.Logger == nil {
		pc.Logger = logger.Named("provision")
	}
	return pc.Logger
}

func (pc *Context) clock() time.Time {
	if pc.now != nil {
		return pc.now()
	}
	return time.Now().UTC()
}

func (pc *Context) enter(step string, log *slog.Logger) {
	pc.step = step
	pc.Logger = log
}

// Require returns the active manifest record for name.
func (pc *Context) Require(name string) (manifest.Record, error) {
	record, err := pc.Manifest.Require(name)
	if err != nil {
		return manifest.Record{}, &MissingDependencyError{Step: pc.step, Name: name}
	}
	return record, nil
}

// Deploy creates the named contract unless the active record was deployed from the
// same artifact with the same constructor arguments.
func (pc *Context) Deploy(ctx context.Context, name string, opts DeployOptions) (manifest.Record, error) {
	contractName := opts.Contract
	if contractName == "" {
		contractName = name
	}

	digest, err := manifest.Digest(opts.Args...)
	if err != nil {
		return manifest.Record{}, fmt.Errorf("step %s: %s: %w", pc.step, name, err)
	}

	log := pc.Log().With("contract", name)
	if existing, ok := pc.Manifest.Active(name); ok && existing.Contract == contractName && existing.ArgsDigest == digest {
		log.With("address", existing.Address.Hex()).Info("reusing deployment")
		return existing, nil
	}

	contract, err := pc.Artifacts.Get(contractName)
	if err != nil {
		return manifest.Record{}, fmt.Errorf("step %s: %w", pc.step, err)
	}

	receipt, err := pc.Chain.Deploy(ctx, contract, opts.Args...)
	if err != nil {
		return manifest.Record{}, &ExternalCallError{Step: pc.step, Target: name, Method: "deploy", Err: err}
	}

	record := manifest.Record{
		Name:        name,
		Contract:    contractName,
		Address:     receipt.ContractAddress,
		Args:        opts.Args,
		ArgsDigest:  digest,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Step:        pc.step,
		DeployedAt:  pc.clock(),
	}
	pc.Manifest.Append(record)
	if err := pc.save(); err != nil {
		return manifest.Record{}, err
	}

	log.With("address", record.Address.Hex()).With("tx_hash", record.TxHash.Hex()).Info("contract deployed")

	return record, nil
}

// Register records an address the step did not deploy itself, such as a contract
// created by a factory. Nothing is appended when the active record already matches.
func (pc *Context) Register(name, contract string, address common.Address) error {
	if existing, ok := pc.Manifest.Active(name); ok && existing.Address == address && existing.Contract == contract {
		return nil
	}

	pc.Manifest.Append(manifest.Record{
		Name:       name,
		Contract:   contract,
		Address:    address,
		Step:       pc.step,
		External:   true,
		DeployedAt: pc.clock(),
	})
	return pc.save()
}

// Execute sends inv unless current state shows it is already applied. It reports
// whether a transaction was sent.
func (pc *Context) Execute(ctx context.Context, inv Invocation) (bool, error) {
	record, err := pc.Require(inv.Target)
	if err != nil {
		return false, err
	}
	contract, err := pc.Artifacts.Get(record.Contract)
	if err != nil {
		return false, fmt.Errorf("step %s: %w", pc.step, err)
	}

	digest, err := manifest.Digest(inv.Args...)
	if err != nil {
		return false, fmt.Errorf("step %s: %s.%s: %w", pc.step, inv.Target, inv.Method, err)
	}

	log := pc.Log().With("contract", inv.Target).With("method", inv.Method)

	applied, err := pc.applied(ctx, record, contract, inv, digest)
	if err != nil {
		return false, err
	}
	if applied {
		log.Info("already applied, skipping")
		return false, nil
	}

	receipt, err := pc.Chain.Transact(ctx, contract, record.Address, inv.Method, inv.Args...)
	if err != nil {
		return false, &ExternalCallError{Step: pc.step, Target: inv.Target, Method: inv.Method, Err: err}
	}

	pc.Manifest.RecordExecution(manifest.Execution{
		Step:       pc.step,
		Target:     inv.Target,
		Address:    record.Address,
		Method:     inv.Method,
		ArgsDigest: digest,
		TxHash:     receipt.TxHash,
		ExecutedAt: pc.clock(),
	})
	if err := pc.save(); err != nil {
		return false, err
	}

	log.With("tx_hash", receipt.TxHash.Hex()).Info("transaction confirmed")

	return true, nil
}

func (pc *Context) applied(ctx context.Context, record manifest.Record, contract artifacts.Contract, inv Invocation, digest common.Hash) (bool, error) {
	if inv.Getter != "" {
		if _, ok := contract.ABI.Methods[inv.Getter]; ok {
			out, err := pc.Chain.Call(ctx, contract, record.Address, inv.Getter, inv.GetterArgs...)
			if err != nil {
				return false, &ExternalCallError{Step: pc.step, Target: inv.Target, Method: inv.Getter, Err: err}
			}
			return len(out) == 1 && SameValue(out[0], inv.Want), nil
		}
	}

	return pc.Manifest.Executed(record.Address, inv.Method, digest), nil
}

// Call runs a view method on the named contract.
func (pc *Context) Call(ctx context.Context, target, method string, args ...any) ([]any, error) {
	record, err := pc.Require(target)
	if err != nil {
		return nil, err
	}
	contract, err := pc.Artifacts.Get(record.Contract)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", pc.step, err)
	}

	out, err := pc.Chain.Call(ctx, contract, record.Address, method, args...)
	if err != nil {
		return nil, &ExternalCallError{Step: pc.step, Target: target, Method: method, Err: err}
	}
	return out, nil
}

// CallSingle runs a view method that returns exactly one value.
func (pc *Context) CallSingle(ctx context.Context, target, method string, args ...any) (any, error) {
	out, err := pc.Call(ctx, target, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &ExternalCallError{Step: pc.step, Target: target, Method: method, Err: fmt.Errorf("expected 1 return value, got %d", len(out))}
	}
	return out[0], nil
}

// Verify submits items to the verification service. Per-item failures are reported in
// the results, never as an error.
func (pc *Context) Verify(ctx context.Context, items []verify.Item) ([]verify.Result, error) {
	if pc.Verifier == nil {
		return nil, errNoVerifier
	}
	return pc.Verifier.Submit(ctx, items), nil
}

func (pc *Context) save() error {
	if pc.Store == nil {
		return nil
	}
	if err := pc.Store.Save(pc.Manifest); err != nil {
		return fmt.Errorf("step %s: %w", pc.step, err)
	}
	return nil
}

// SameValue compares an on-chain value with a configured one, treating different
// spellings of the same address or number as equal.
func SameValue(got, want any) bool {
	if got == nil || want == nil {
		return got == want
	}
	a, errA := manifest.Digest(got)
	b, errB := manifest.Digest(want)
	return errA == nil && errB == nil && a == b
}

// IsZero reports whether a value returned by a view call is the zero value of its type.
func IsZero(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *big.Int:
		return v == nil || v.Sign() == 0
	case common.Address:
		return v == common.Address{}
	case bool:
		return !v
	case string:
		return v == ""
	}

	n, ok := new(big.Int).SetString(fmt.Sprint(value), 10)
	return ok && n.Sign() == 0
}
