package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/artifacts"
	"github.com/lgns/provisioner/internal/logger"
)

var ErrReverted = errors.New("transaction reverted")

const defaultPollInterval = 2 * time.Second

type (
	// Backend is the subset of ethclient.Client the deployer relies on.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
		BlockNumber(ctx context.Context) (uint64, error)
		ChainID(ctx context.Context) (*big.Int, error)
	}

	Options struct {
		GasPrice      *big.Int
		GasLimit      uint64
		Confirmations uint64
		Timeout       time.Duration
		PollInterval  time.Duration
	}

	// Receipt summarises a mined and confirmed transaction.
	Receipt struct {
		TxHash          common.Hash
		BlockNumber     uint64
		ContractAddress common.Address
		GasUsed         uint64
	}

	Client struct {
		backend Backend
		key     *ecdsa.PrivateKey
		from    common.Address
		chainID *big.Int
		opts    Options
		closer  func()
		logger  *slog.Logger
	}
)

// Dial connects to the network RPC and checks that it serves the configured chain.
func Dial(ctx context.Context, network configs.Network, privateKeyHex string) (*Client, error) {
	log := logger.Named("chain_client").With("url", network.RPCURL)

	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	log.Info("dialing the network RPC")
	eth, err := ethclient.DialContext(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", network.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Uint64() != network.ChainID {
		eth.Close()
		return nil, fmt.Errorf("RPC %s serves chain %s, expected %d", network.RPCURL, chainID, network.ChainID)
	}
	log.With("chain_id", chainID).Info("chain ID was fetched")

	opts := Options{
		GasLimit:      network.GasLimit,
		Confirmations: network.Confirmations,
		Timeout:       network.Timeout,
	}
	if network.GasPriceWei != "" {
		if opts.GasPrice, err = configs.ParseUint(network.GasPriceWei); err != nil {
			eth.Close()
			return nil, fmt.Errorf("invalid gas price: %w", err)
		}
	}

	client := NewClient(eth, key, chainID, opts)
	client.closer = eth.Close
	return client, nil
}

// NewClient wraps an already connected backend.
func NewClient(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, opts Options) *Client {
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	from, _ := addressOf(key)
	return &Client{
		backend: backend,
		key:     key,
		from:    from,
		chainID: chainID,
		opts:    opts,
		logger:  logger.Named("chain_client"),
	}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// From returns the deployer account.
func (c *Client) From() common.Address {
	return c.from
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Deploy sends the contract creation transaction and waits for the configured confirmations.
func (c *Client) Deploy(ctx context.Context, contract artifacts.Contract, args ...any) (Receipt, error) {
	if len(contract.Bytecode) == 0 {
		return Receipt{}, fmt.Errorf("contract %s has no bytecode", contract.Name)
	}

	packed, err := CoerceArgs(contract.ABI.Constructor.Inputs, args)
	if err != nil {
		return Receipt{}, fmt.Errorf("invalid constructor arguments for %s: %w", contract.Name, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	auth, err := c.transactor(ctx)
	if err != nil {
		return Receipt{}, err
	}

	address, tx, _, err := bind.DeployContract(auth, contract.ABI, contract.Bytecode, c.backend, packed...)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to deploy %s: %w", contract.Name, err)
	}

	c.logger.
		With("contract", contract.Name).
		With("address", address).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract deployment transaction sent")

	receipt, err := c.confirm(ctx, tx)
	if err != nil {
		return Receipt{}, err
	}
	receipt.ContractAddress = address

	return receipt, nil
}

// Transact invokes a state-changing method and waits for the configured confirmations.
func (c *Client) Transact(ctx context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) (Receipt, error) {
	m, ok := contract.ABI.Methods[method]
	if !ok {
		return Receipt{}, fmt.Errorf("contract %s has no method %s", contract.Name, method)
	}
	packed, err := CoerceArgs(m.Inputs, args)
	if err != nil {
		return Receipt{}, fmt.Errorf("invalid arguments for %s.%s: %w", contract.Name, method, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	auth, err := c.transactor(ctx)
	if err != nil {
		return Receipt{}, err
	}

	bound := bind.NewBoundContract(address, contract.ABI, c.backend, c.backend, c.backend)
	tx, err := bound.Transact(auth, method, packed...)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to send %s.%s: %w", contract.Name, method, err)
	}

	c.logger.
		With("contract", contract.Name).
		With("method", method).
		With("tx_hash", tx.Hash().Hex()).
		Info("transaction sent")

	return c.confirm(ctx, tx)
}

// Call executes a read-only method against the latest block.
func (c *Client) Call(ctx context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) ([]any, error) {
	m, ok := contract.ABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract %s has no method %s", contract.Name, method)
	}
	packed, err := CoerceArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %s.%s: %w", contract.Name, method, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out []any
	bound := bind.NewBoundContract(address, contract.ABI, c.backend, c.backend, c.backend)
	if err := bound.Call(&bind.CallOpts{Context: ctx, From: c.from}, &out, method, packed...); err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", contract.Name, method, err)
	}

	return out, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	gasPrice := c.opts.GasPrice
	if gasPrice == nil {
		if gasPrice, err = c.backend.SuggestGasPrice(ctx); err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
	}

	auth.Context = ctx
	auth.GasLimit = c.opts.GasLimit
	auth.GasPrice = gasPrice

	return auth, nil
}

func (c *Client) confirm(ctx context.Context, tx *types.Transaction) (Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, fmt.Errorf("%w: %s with status %d", ErrReverted, tx.Hash().Hex(), receipt.Status)
	}

	minedAt := receipt.BlockNumber.Uint64()
	if err := WaitForConfirmations(ctx, c.backend, minedAt, c.opts.Confirmations, c.opts.PollInterval); err != nil {
		return Receipt{}, fmt.Errorf("transaction %s: %w", tx.Hash().Hex(), err)
	}

	return Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: minedAt,
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func addressOf(key *ecdsa.PrivateKey) (common.Address, bool) {
	if key == nil {
		return common.Address{}, false
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}
