package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/logger"
)

var ErrVerification = errors.New("verification failed")

type (
	// Item is one deployed contract to verify.
	Item struct {
		Name     string
		Contract string
		Address  common.Address
	}

	Status string

	Result struct {
		Item   Item
		Status Status
		Err    error
	}

	Service interface {
		Check(ctx context.Context, chainID uint64, address common.Address) (bool, error)
		Verify(ctx context.Context, chainID uint64, address common.Address, files map[string]string) error
	}

	FileSource interface {
		VerificationFiles(name string) (map[string]string, error)
	}

	// Submitter verifies items one by one. A failing item never stops the batch.
	Submitter struct {
		service Service
		files   FileSource
		chainID uint64
		logger  *slog.Logger
	}
)

const (
	StatusVerified        Status = "verified"
	StatusAlreadyVerified Status = "already-verified"
	StatusFailed          Status = "failed"
)

func NewSubmitter(service Service, files FileSource, chainID uint64) *Submitter {
	return &Submitter{
		service: service,
		files:   files,
		chainID: chainID,
		logger:  logger.Named("verification_submitter"),
	}
}

// Submit attempts every item and returns one result per item, in order.
func (s *Submitter) Submit(ctx context.Context, items []Item) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		result := s.submit(ctx, item)
		log := s.logger.With("name", item.Name).With("address", item.Address.Hex()).With("status", result.Status)
		if result.Err != nil {
			log.With("err", result.Err.Error()).Warn("contract verification failed")
		} else {
			log.Info("contract verification finished")
		}
		results = append(results, result)
	}
	return results
}

func (s *Submitter) submit(ctx context.Context, item Item) Result {
	fail := func(err error) Result {
		return Result{Item: item, Status: StatusFailed, Err: fmt.Errorf("%w: %s: %w", ErrVerification, item.Name, err)}
	}

	if item.Address == (common.Address{}) {
		return fail(errors.New("no address"))
	}

	verified, err := s.service.Check(ctx, s.chainID, item.Address)
	if err != nil {
		return fail(err)
	}
	if verified {
		return Result{Item: item, Status: StatusAlreadyVerified}
	}

	contract := item.Contract
	if contract == "" {
		contract = item.Name
	}
	files, err := s.files.VerificationFiles(contract)
	if err != nil {
		return fail(err)
	}

	if err := s.service.Verify(ctx, s.chainID, item.Address, files); err != nil {
		return fail(err)
	}

	return Result{Item: item, Status: StatusVerified}
}

// Failed counts the failed results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}
