package provisiontest

import (
	"context"

	"github.com/lgns/provisioner/internal/manifest"
	"github.com/lgns/provisioner/internal/verify"
)

// Store counts manifest saves.
type Store struct {
	Saves int
	Err   error
}

func (s *Store) Save(*manifest.Manifest) error {
	if s.Err != nil {
		return s.Err
	}
	s.Saves++
	return nil
}

// Verifier records every submitted batch and fails the named items.
type Verifier struct {
	Batches [][]verify.Item
	Fail    map[string]error
}

func (v *Verifier) Submit(_ context.Context, items []verify.Item) []verify.Result {
	v.Batches = append(v.Batches, items)
	results := make([]verify.Result, 0, len(items))
	for _, item := range items {
		if err := v.Fail[item.Name]; err != nil {
			results = append(results, verify.Result{Item: item, Status: verify.StatusFailed, Err: err})
			continue
		}
		results = append(results, verify.Result{Item: item, Status: verify.StatusVerified})
	}
	return results
}

// Submitted returns the names of every submitted item in order.
func (v *Verifier) Submitted() []string {
	var names []string
	for _, batch := range v.Batches {
		for _, item := range batch {
			names = append(names, item.Name)
		}
	}
	return names
}
