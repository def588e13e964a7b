package manifest

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lgns/provisioner/internal/infra/filesystem"
	"github.com/lgns/provisioner/internal/logger"
)

const fileName = "manifest.json"

// Store persists one manifest per network under <root>/<network>/manifest.json.
type Store struct {
	root   string
	reader filesystem.Reader
	writer filesystem.Writer
	logger *slog.Logger
}

func NewStore(root string, reader filesystem.Reader, writer filesystem.Writer) *Store {
	return &Store{
		root:   root,
		reader: reader,
		writer: writer,
		logger: logger.Named("manifest_store"),
	}
}

func (s *Store) Path(network string) string {
	return filepath.Join(s.root, network, fileName)
}

// Load returns the stored manifest, or an empty one when the network has none yet.
func (s *Store) Load(network string, chainID uint64) (*Manifest, error) {
	path := s.Path(network)

	exists, err := s.reader.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.With("path", path).Info("no manifest found, starting a new one")
		return New(network, chainID), nil
	}

	m := New(network, chainID)
	if err := s.reader.ReadJSON(path, m); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if m.ChainID != 0 && chainID != 0 && m.ChainID != chainID {
		return nil, fmt.Errorf("manifest %s belongs to chain %d, expected %d", path, m.ChainID, chainID)
	}
	m.Network = network
	if chainID != 0 {
		m.ChainID = chainID
	}

	s.logger.With("path", path).With("records", len(m.Records)).Debug("manifest loaded")

	return m, nil
}

func (s *Store) Save(m *Manifest) error {
	if err := s.writer.WriteJSON(s.Path(m.Network), m); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}
