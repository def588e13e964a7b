package artifacts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

type (
	debugFile struct {
		BuildInfo string `json:"buildInfo"`
	}

	buildInfo struct {
		SolcVersion string `json:"solcVersion"`
		Input       struct {
			Sources map[string]struct {
				Content string `json:"content"`
			} `json:"sources"`
		} `json:"input"`
		Output struct {
			Contracts map[string]map[string]struct {
				Metadata string `json:"metadata"`
			} `json:"contracts"`
		} `json:"output"`
	}

	metadataSources struct {
		Sources map[string]json.RawMessage `json:"sources"`
	}
)

// MetadataFileName is the key the compiler metadata is submitted under.
const MetadataFileName = "metadata.json"

// VerificationFiles returns the compiler metadata and every source file it references,
// keyed by file name, as expected by source verification services.
func (s *Store) VerificationFiles(name string) (map[string]string, error) {
	contract, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if contract.DebugFile == "" {
		return nil, fmt.Errorf("contract %s has no build info reference", name)
	}

	var dbg debugFile
	if err := s.reader.ReadJSON(contract.DebugFile, &dbg); err != nil {
		return nil, fmt.Errorf("failed to read debug file for %s: %w", name, err)
	}

	buildInfoPath := filepath.Join(filepath.Dir(contract.DebugFile), dbg.BuildInfo)
	var info buildInfo
	if err := s.reader.ReadJSON(buildInfoPath, &info); err != nil {
		return nil, fmt.Errorf("failed to read build info for %s: %w", name, err)
	}

	output, ok := info.Output.Contracts[contract.SourceName][contract.Name]
	if !ok || output.Metadata == "" {
		return nil, fmt.Errorf("build info %s has no metadata for %s:%s", buildInfoPath, contract.SourceName, contract.Name)
	}

	var meta metadataSources
	if err := json.Unmarshal([]byte(output.Metadata), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", name, err)
	}

	files := map[string]string{MetadataFileName: output.Metadata}
	for source := range meta.Sources {
		input, ok := info.Input.Sources[source]
		if !ok {
			return nil, fmt.Errorf("build info %s is missing source %s", buildInfoPath, source)
		}
		files[source] = input.Content
	}

	s.logger().With("contract", name).With("files", len(files)).Debug("verification files collected")

	return files, nil
}
