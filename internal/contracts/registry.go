package contracts

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
)

// Well-known contract names.
const (
	Dev             = "Dev"
	Lockup          = "Lockup"
	Withdraw        = "Withdraw"
	PropertyFactory = "PropertyFactory"
	PropertyGroup   = "PropertyGroup"
	MetricsFactory  = "MetricsFactory"
	Pair            = "Pair"
	Property        = "Property"

	PropertyDirectoryFactory = "PropertyDirectoryFactory"
)

//go:embed abi/*.json
var abiFS embed.FS

// LoadABI parses the embedded ABI of a well-known contract.
func LoadABI(name string) (*abi.ABI, error) {
	data, err := abiFS.ReadFile("abi/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("no embedded ABI for contract %s: %w", name, err)
	}

	parsed, err := abi.JSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI of %s: %w", name, err)
	}

	return &parsed, nil
}

// Registry resolves contract names to deployed addresses and ABIs.
type Registry struct {
	contracts map[string]chainlog.Contract
}

// NewRegistry builds a registry from the configured contracts.
// A configured abi_path replaces the embedded ABI.
func NewRegistry(cfgs []config.ContractConfig) (*Registry, error) {
	r := &Registry{contracts: make(map[string]chainlog.Contract, len(cfgs))}

	for _, cfg := range cfgs {
		var (
			parsed *abi.ABI
			err    error
		)

		if cfg.ABIPath != "" {
			parsed, err = loadABIFile(cfg.ABIPath)
		} else {
			parsed, err = LoadABI(cfg.Name)
		}
		if err != nil {
			return nil, err
		}

		r.contracts[cfg.Name] = chainlog.Contract{
			Name:    cfg.Name,
			Address: common.HexToAddress(cfg.Address),
			ABI:     parsed,
		}
	}

	return r, nil
}

// Contract returns the configured contract with the given name.
func (r *Registry) Contract(name string) (chainlog.Contract, error) {
	c, ok := r.contracts[name]
	if !ok {
		return chainlog.Contract{}, fmt.Errorf("contract %s is not configured", name)
	}

	return c, nil
}

// Has reports whether a contract with the given name is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.contracts[name]
	return ok
}

func loadABIFile(path string) (*abi.ABI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ABI file: %w", err)
	}
	defer f.Close()

	parsed, err := abi.JSON(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI file %s: %w", path, err)
	}

	return &parsed, nil
}
