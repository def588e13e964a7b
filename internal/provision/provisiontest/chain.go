package provisiontest

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/artifacts"
	"github.com/lgns/provisioner/internal/chain"
	"github.com/lgns/provisioner/internal/manifest"
)

type (
	Deployment struct {
		Contract string
		Address  common.Address
		Args     []any
	}

	Transaction struct {
		Contract string
		Address  common.Address
		Method   string
		Args     []any
	}

	// Effect replaces the default state change of a transaction.
	Effect func(c *Chain, address common.Address, args []any)

	// Chain is an in-memory contract backend. Arguments are converted against the ABI
	// exactly as the real client does, and a setter "setFoo(k..., v)" makes the view
	// "foo(k...)" return v unless an Effect is registered for the method.
	Chain struct {
		Sender       common.Address
		Deployments  []Deployment
		Transactions []Transaction
		Calls        int

		views    map[viewKey]any
		effects  map[string]Effect
		failures map[string]error
		nonce    uint64
	}

	viewKey struct {
		address common.Address
		method  string
		args    common.Hash
	}
)

func NewChain(sender common.Address) *Chain {
	return &Chain{
		Sender:   sender,
		views:    make(map[viewKey]any),
		effects:  make(map[string]Effect),
		failures: make(map[string]error),
	}
}

func (c *Chain) From() common.Address {
	return c.Sender
}

// OnTransact registers the state change applied when method is sent.
func (c *Chain) OnTransact(method string, effect Effect) {
	c.effects[method] = effect
}

// FailOn makes "deploy:Contract" or "Contract.method" return err.
func (c *Chain) FailOn(key string, err error) {
	c.failures[key] = err
}

// SetView fixes the value returned by method(args...) at address.
func (c *Chain) SetView(address common.Address, method string, value any, args ...any) {
	c.views[c.key(address, method, args)] = value
}

func (c *Chain) View(address common.Address, method string, args ...any) (any, bool) {
	v, ok := c.views[c.key(address, method, args)]
	return v, ok
}

// NewAddress returns a fresh deterministic address.
func (c *Chain) NewAddress() common.Address {
	c.nonce++
	return common.BigToAddress(new(big.Int).SetUint64(0x1000 + c.nonce))
}

// Mutations counts deployments and transactions.
func (c *Chain) Mutations() int {
	return len(c.Deployments) + len(c.Transactions)
}

// Sent returns the transactions made with method.
func (c *Chain) Sent(method string) []Transaction {
	var out []Transaction
	for _, tx := range c.Transactions {
		if tx.Method == method {
			out = append(out, tx)
		}
	}
	return out
}

// Deployed returns the address of the latest deployment of contract.
func (c *Chain) Deployed(contract string) (common.Address, bool) {
	for i := len(c.Deployments) - 1; i >= 0; i-- {
		if c.Deployments[i].Contract == contract {
			return c.Deployments[i].Address, true
		}
	}
	return common.Address{}, false
}

func (c *Chain) Deploy(_ context.Context, contract artifacts.Contract, args ...any) (chain.Receipt, error) {
	if err := c.failures["deploy:"+contract.Name]; err != nil {
		return chain.Receipt{}, err
	}
	packed, err := chain.CoerceArgs(contract.ABI.Constructor.Inputs, args)
	if err != nil {
		return chain.Receipt{}, err
	}

	address := c.NewAddress()
	c.Deployments = append(c.Deployments, Deployment{Contract: contract.Name, Address: address, Args: packed})

	return c.receipt(address), nil
}

func (c *Chain) Transact(_ context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) (chain.Receipt, error) {
	if err := c.failures[contract.Name+"."+method]; err != nil {
		return chain.Receipt{}, err
	}
	m, ok := contract.ABI.Methods[method]
	if !ok {
		return chain.Receipt{}, fmt.Errorf("contract %s has no method %s", contract.Name, method)
	}
	packed, err := chain.CoerceArgs(m.Inputs, args)
	if err != nil {
		return chain.Receipt{}, err
	}

	c.Transactions = append(c.Transactions, Transaction{Contract: contract.Name, Address: address, Method: method, Args: packed})

	if effect, ok := c.effects[method]; ok {
		effect(c, address, packed)
	} else if getter, ok := getterOf(method); ok && len(packed) > 0 {
		c.SetView(address, getter, packed[len(packed)-1], packed[:len(packed)-1]...)
	}

	return c.receipt(common.Address{}), nil
}

func (c *Chain) Call(_ context.Context, contract artifacts.Contract, address common.Address, method string, args ...any) ([]any, error) {
	c.Calls++
	if err := c.failures[contract.Name+"."+method]; err != nil {
		return nil, err
	}
	m, ok := contract.ABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract %s has no method %s", contract.Name, method)
	}
	packed, err := chain.CoerceArgs(m.Inputs, args)
	if err != nil {
		return nil, err
	}

	if v, ok := c.View(address, method, packed...); ok {
		return []any{v}, nil
	}

	out := make([]any, len(m.Outputs))
	for i, o := range m.Outputs {
		out[i] = zeroOf(o.Type)
	}
	return out, nil
}

func (c *Chain) receipt(created common.Address) chain.Receipt {
	c.nonce++
	return chain.Receipt{
		TxHash:          common.BigToHash(new(big.Int).SetUint64(c.nonce)),
		BlockNumber:     c.nonce,
		ContractAddress: created,
	}
}

func (c *Chain) key(address common.Address, method string, args []any) viewKey {
	digest, err := manifest.Digest(args...)
	if err != nil {
		panic(err)
	}
	return viewKey{address: address, method: method, args: digest}
}

func getterOf(method string) (string, bool) {
	name, ok := strings.CutPrefix(method, "set")
	if !ok || name == "" {
		return "", false
	}
	if strings.ToUpper(name) == name {
		return strings.ToLower(name), true
	}
	return strings.ToLower(name[:1]) + name[1:], true
}

func zeroOf(t abi.Type) any {
	if (t.T == abi.UintTy || t.T == abi.IntTy) && t.Size > 64 {
		return new(big.Int)
	}
	return reflect.Zero(t.GetType()).Interface()
}
