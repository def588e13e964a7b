package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNotFound = errors.New("not found in manifest")

type (
	// Manifest is the append-only provisioning record of one network.
	Manifest struct {
		Network    string      `json:"network"`
		ChainID    uint64      `json:"chainId"`
		Records    []Record    `json:"records"`
		Executions []Execution `json:"executions"`
		Steps      []StepRun   `json:"steps"`
	}

	// Record is one deployment of a logical contract name. Later records for the same
	// name supersede earlier ones.
	Record struct {
		Name        string         `json:"name"`
		Contract    string         `json:"contract"`
		Address     common.Address `json:"address"`
		Args        []any          `json:"args,omitempty"`
		ArgsDigest  common.Hash    `json:"argsDigest"`
		TxHash      common.Hash    `json:"txHash,omitempty"`
		BlockNumber uint64         `json:"blockNumber,omitempty"`
		Step        string         `json:"step,omitempty"`
		// External marks addresses created outside this tool, e.g. by a factory call.
		External   bool      `json:"external,omitempty"`
		DeployedAt time.Time `json:"deployedAt"`
	}

	// Execution is one state-changing call made against a deployed contract.
	Execution struct {
		Step       string         `json:"step"`
		Target     string         `json:"target"`
		Address    common.Address `json:"address"`
		Method     string         `json:"method"`
		ArgsDigest common.Hash    `json:"argsDigest"`
		TxHash     common.Hash    `json:"txHash"`
		ExecutedAt time.Time      `json:"executedAt"`
	}

	StepRun struct {
		Name        string    `json:"name"`
		CompletedAt time.Time `json:"completedAt"`
	}
)

func New(network string, chainID uint64) *Manifest {
	return &Manifest{Network: network, ChainID: chainID}
}

// Active returns the latest record for name.
func (m *Manifest) Active(name string) (Record, bool) {
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Name == name {
			return m.Records[i], true
		}
	}
	return Record{}, false
}

// Require returns the active record for name or an error wrapping ErrNotFound.
func (m *Manifest) Require(name string) (Record, error) {
	record, ok := m.Active(name)
	if !ok || record.Address == (common.Address{}) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return record, nil
}

// Append adds a deployment record; it never replaces an existing one.
func (m *Manifest) Append(record Record) {
	m.Records = append(m.Records, record)
}

// Names lists every name with an active record, sorted.
func (m *Manifest) Names() []string {
	seen := make(map[string]struct{}, len(m.Records))
	for _, r := range m.Records {
		seen[r.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveRecords returns the active record of every name, sorted by name.
func (m *Manifest) ActiveRecords() []Record {
	names := m.Names()
	records := make([]Record, 0, len(names))
	for _, name := range names {
		r, _ := m.Active(name)
		records = append(records, r)
	}
	return records
}

// Executed reports whether the same call was already made against address.
func (m *Manifest) Executed(address common.Address, method string, digest common.Hash) bool {
	for _, e := range m.Executions {
		if e.Address == address && e.Method == method && e.ArgsDigest == digest {
			return true
		}
	}
	return false
}

func (m *Manifest) RecordExecution(execution Execution) {
	m.Executions = append(m.Executions, execution)
}

func (m *Manifest) Completed(step string) bool {
	for _, s := range m.Steps {
		if s.Name == step {
			return true
		}
	}
	return false
}

// MarkCompleted records the first completion of step. Later completions keep the
// original time so repeated runs leave the manifest unchanged.
func (m *Manifest) MarkCompleted(step string, at time.Time) {
	if m.Completed(step) {
		return
	}
	m.Steps = append(m.Steps, StepRun{Name: step, CompletedAt: at})
}

// Digest hashes the canonical JSON encoding of args. Addresses and integers are
// normalised so that different spellings of the same value produce the same digest.
func Digest(args ...any) (common.Hash, error) {
	normalized := make([]any, len(args))
	for i, a := range args {
		normalized[i] = normalize(a)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode arguments: %w", err)
	}
	return crypto.Keccak256Hash(data), nil
}

func normalize(value any) any {
	switch v := value.(type) {
	case string:
		if common.IsHexAddress(v) && strings.HasPrefix(v, "0x") && len(v) == 42 {
			return strings.ToLower(v)
		}
		return v
	case common.Address:
		return strings.ToLower(v.Hex())
	case *big.Int:
		if v == nil {
			return nil
		}
		return v.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case []common.Address:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case []*big.Int:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
