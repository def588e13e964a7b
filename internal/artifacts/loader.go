package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/infra/filesystem"
	fsjson "github.com/lgns/provisioner/internal/infra/filesystem/json"
	"github.com/lgns/provisioner/internal/logger"
)

var ErrNotFound = errors.New("artifact not found")

type (
	// Contract is a compiled contract loaded from a hardhat artifact.
	Contract struct {
		Name       string
		SourceName string
		ABI        abi.ABI
		RawABI     string
		Bytecode   []byte
		// DebugFile points at the .dbg.json next to the artifact, used to locate build info.
		DebugFile string
	}

	Store struct {
		contracts map[string][]Contract
		reader    filesystem.Reader
	}

	hardhatArtifact struct {
		Format       string          `json:"_format"`
		ContractName string          `json:"contractName"`
		SourceName   string          `json:"sourceName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
)

// Load walks a hardhat artifacts directory and indexes every deployable contract by name.
func Load(root string) (*Store, error) {
	log := logger.Named("artifacts_loader").With("root", root)
	reader := fsjson.NewReader()

	exists, err := reader.Exists(root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("artifacts directory not found. Directory: '%s'", root)
	}

	store := &Store{contracts: make(map[string][]Contract), reader: reader}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}

		var artifact hardhatArtifact
		if err := reader.ReadJSON(path, &artifact); err != nil {
			return err
		}
		if artifact.ContractName == "" || len(artifact.ABI) == 0 {
			return nil
		}

		contract, err := parseArtifact(artifact)
		if err != nil {
			return fmt.Errorf("failed to parse artifact %s: %w", path, err)
		}
		contract.DebugFile = strings.TrimSuffix(path, ".json") + ".dbg.json"

		store.add(contract)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}

	log.With("len", len(store.contracts)).Debug("artifacts loaded")

	return store, nil
}

// New builds a store from already parsed contracts.
func New(contracts ...Contract) *Store {
	store := &Store{contracts: make(map[string][]Contract), reader: fsjson.NewReader()}
	for _, c := range contracts {
		store.add(c)
	}
	return store
}

// Parse builds a Contract from a raw ABI JSON string and hex bytecode.
func Parse(name, rawABI, bytecode string) (Contract, error) {
	return parseArtifact(hardhatArtifact{ContractName: name, ABI: json.RawMessage(rawABI), Bytecode: bytecode})
}

func parseArtifact(artifact hardhatArtifact) (Contract, error) {
	parsedABI, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return Contract{}, fmt.Errorf("failed to parse ABI for %s: %w", artifact.ContractName, err)
	}

	return Contract{
		Name:       artifact.ContractName,
		SourceName: artifact.SourceName,
		ABI:        parsedABI,
		RawABI:     string(artifact.ABI),
		Bytecode:   common.FromHex(artifact.Bytecode),
	}, nil
}

func (s *Store) add(c Contract) {
	s.contracts[c.Name] = append(s.contracts[c.Name], c)
}

// Get returns the contract with the given name. Names declared in more than one
// source file must be disambiguated as "path/To.sol:Name".
func (s *Store) Get(name string) (Contract, error) {
	sourceName, contractName, qualified := strings.Cut(name, ":")
	if !qualified {
		contractName = sourceName
	}

	candidates := s.contracts[contractName]
	if qualified {
		for _, c := range candidates {
			if c.SourceName == sourceName {
				return c, nil
			}
		}
		return Contract{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	switch len(candidates) {
	case 0:
		return Contract{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	case 1:
		return candidates[0], nil
	default:
		sources := make([]string, 0, len(candidates))
		for _, c := range candidates {
			sources = append(sources, c.SourceName)
		}
		sort.Strings(sources)
		return Contract{}, fmt.Errorf("contract name %s is ambiguous, qualify it with one of %v", name, sources)
	}
}

// Names returns every indexed contract name, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.contracts))
	for name := range s.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) logger() *slog.Logger {
	return logger.Named("artifacts_store")
}
