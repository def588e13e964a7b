// Package provisiontest provides in-memory doubles for running provisioning steps
// without a node.
package provisiontest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lgns/provisioner/internal/artifacts"
)

type (
	abiParam struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	abiEntry struct {
		Type            string     `json:"type"`
		Name            string     `json:"name,omitempty"`
		Inputs          []abiParam `json:"inputs"`
		Outputs         []abiParam `json:"outputs,omitempty"`
		StateMutability string     `json:"stateMutability"`
	}
)

// Contract builds an artifact from short signatures:
//
//	constructor(address,address)
//	setHouse(address)
//	house()(address)
//
// Signatures with an output list are views; the rest are state-changing.
func Contract(name string, signatures ...string) (artifacts.Contract, error) {
	entries := make([]abiEntry, 0, len(signatures))
	for _, sig := range signatures {
		entry, err := parseSignature(sig)
		if err != nil {
			return artifacts.Contract{}, fmt.Errorf("%s: %w", name, err)
		}
		entries = append(entries, entry)
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return artifacts.Contract{}, err
	}

	return artifacts.Parse(name, string(raw), "0x6080604052")
}

// MustContract is Contract for fixtures.
func MustContract(name string, signatures ...string) artifacts.Contract {
	c, err := Contract(name, signatures...)
	if err != nil {
		panic(err)
	}
	return c
}

func parseSignature(sig string) (abiEntry, error) {
	open := strings.Index(sig, "(")
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return abiEntry{}, fmt.Errorf("malformed signature %q", sig)
	}
	name := sig[:open]

	rest := sig[open+1:]
	inputs, outputs, hasOutputs := strings.Cut(rest, ")(")
	if hasOutputs {
		outputs = strings.TrimSuffix(outputs, ")")
	} else {
		inputs = strings.TrimSuffix(inputs, ")")
	}

	entry := abiEntry{
		Type:            "function",
		Name:            name,
		Inputs:          params(inputs, "arg"),
		StateMutability: "nonpayable",
	}
	if name == "constructor" {
		entry.Type = "constructor"
		entry.Name = ""
	}
	if hasOutputs {
		entry.Outputs = params(outputs, "out")
		entry.StateMutability = "view"
	}

	return entry, nil
}

func params(list, prefix string) []abiParam {
	out := []abiParam{}
	if strings.TrimSpace(list) == "" {
		return out
	}
	for i, t := range strings.Split(list, ",") {
		out = append(out, abiParam{Name: fmt.Sprintf("%s%d", prefix, i), Type: strings.TrimSpace(t)})
	}
	return out
}
