package output

import (
	"fmt"
	"time"

	"github.com/lgns/provisioner/internal/manifest"
	"gopkg.in/yaml.v3"
)

type (
	// Model is the exported summary of a network's manifest, consumed by frontends
	// and operators.
	Model struct {
		Network   string              `yaml:"network"`
		ChainID   uint64              `yaml:"chainId"`
		Contracts map[string]Contract `yaml:"contracts"`
		Steps     map[string]string   `yaml:"steps,omitempty"`
	}

	Contract struct {
		Contract string `yaml:"contract"`
		Address  string `yaml:"address"`
		TxHash   string `yaml:"txHash,omitempty"`
		External bool   `yaml:"external,omitempty"`
	}
)

// Export renders the active records of m as YAML.
func Export(m *manifest.Manifest) ([]byte, error) {
	model := Model{
		Network:   m.Network,
		ChainID:   m.ChainID,
		Contracts: make(map[string]Contract),
		Steps:     make(map[string]string, len(m.Steps)),
	}

	for _, rec := range m.ActiveRecords() {
		c := Contract{
			Contract: rec.Contract,
			Address:  rec.Address.Hex(),
			External: rec.External,
		}
		if !rec.External {
			c.TxHash = rec.TxHash.Hex()
		}
		model.Contracts[rec.Name] = c
	}
	for _, s := range m.Steps {
		model.Steps[s.Name] = s.CompletedAt.UTC().Format(time.RFC3339)
	}

	data, err := yaml.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("could not marshal manifest export. Err: '%w'", err)
	}

	return data, nil
}
