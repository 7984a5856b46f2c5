package deployments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
)

var (
	identityMethods = []string{"registerIdentity", "updateIdentity", "getIdentity", "getIdentityByMatricula", "getAllIdentities"}
	eventMethods    = []string{"createEvent", "getEvent", "getEventsByOwner", "getAllEvents"}
)

// contractFile is one contract entry of the deploy script output. The abi is
// either a JSON array or that array encoded as a string.
type contractFile struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

type deploymentFile struct {
	Network          string       `json:"network"`
	ChainID          uint64       `json:"chainId"`
	DeployedAt       string       `json:"deployedAt"`
	IdentityRegistry contractFile `json:"IdentityRegistry"`
	EventStorage     contractFile `json:"EventStorage"`
}

// FileLoader reads the deployments file written by the deploy script. The
// file is read on demand until it is found and valid, then cached.
type FileLoader struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	cached *core.Deployment
}

var _ ports.DeploymentSource = (*FileLoader)(nil)

func NewFileLoader(path string, log *slog.Logger) *FileLoader {
	return &FileLoader{path: path, log: log}
}

// Deployment returns the cached deployment, reading the file if needed.
// A missing or unusable file is reported as core.ErrRegistryNotDeployed.
func (l *FileLoader) Deployment(ctx context.Context) (*core.Deployment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached == nil {
		d, err := l.read()
		if err != nil {
			return nil, err
		}
		l.log.Info("Loaded contract deployment",
			"network", d.Network,
			"chainId", d.ChainID,
			"identityRegistry", d.IdentityRegistry.Hex(),
			"eventStorage", d.EventStorage.Hex(),
		)
		l.cached = d
	}

	d := *l.cached
	return &d, nil
}

func (l *FileLoader) read() (*core.Deployment, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", core.ErrRegistryNotDeployed, l.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRegistryNotDeployed, err)
	}

	d, err := Parse(raw)
	if err != nil {
		l.log.Warn("Invalid deployments file", "path", l.path, "err", err)
		return nil, fmt.Errorf("%w: %v", core.ErrRegistryNotDeployed, err)
	}
	return d, nil
}

// Parse decodes a deployments document and checks both contract ABIs expose
// the methods the registry adapter calls.
func Parse(raw []byte) (*core.Deployment, error) {
	var f deploymentFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode deployments: %w", err)
	}

	identityAddr, err := parseContract("IdentityRegistry", f.IdentityRegistry, identityMethods)
	if err != nil {
		return nil, err
	}
	eventAddr, err := parseContract("EventStorage", f.EventStorage, eventMethods)
	if err != nil {
		return nil, err
	}

	return &core.Deployment{
		Network:          f.Network,
		ChainID:          f.ChainID,
		DeployedAt:       f.DeployedAt,
		IdentityRegistry: identityAddr,
		EventStorage:     eventAddr,
	}, nil
}

func parseContract(name string, c contractFile, methods []string) (common.Address, error) {
	if !common.IsHexAddress(c.Address) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, c.Address)
	}

	raw := bytes.TrimSpace(c.ABI)
	if len(raw) == 0 {
		return common.Address{}, fmt.Errorf("%s: abi missing", name)
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return common.Address{}, fmt.Errorf("%s: abi: %w", name, err)
		}
		raw = []byte(encoded)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: abi: %w", name, err)
	}
	for _, m := range methods {
		if _, ok := parsed.Methods[m]; !ok {
			return common.Address{}, fmt.Errorf("%s: abi lacks %s", name, m)
		}
	}
	return common.HexToAddress(c.Address), nil
}
