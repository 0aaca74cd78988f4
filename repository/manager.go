// Package repository stores deployed contract source and descriptors on disk
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/govm-net/counter/core"
)

const (
	codeFile       = "contract.go.txt"
	descriptorFile = "abi.json"
	metadataFile   = "metadata.json"
)

// Manager keeps one directory per contract address
type Manager struct {
	rootDir string
	mu      sync.Mutex
}

// ContractCode is everything stored for a deployed contract
type ContractCode struct {
	Address    core.Address
	Code       []byte    // contract source
	Descriptor []byte    // interface descriptor (JSON)
	Deployer   core.Address
	UpdateTime time.Time // registration time
	Hash       core.Hash // code hash
}

// ContractMetadata is persisted next to the code
type ContractMetadata struct {
	Hash       core.Hash    `json:"hash"`
	Deployer   core.Address `json:"deployer"`
	UpdateTime time.Time    `json:"update_time"`
}

// NewManager creates rootDir when needed
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		slog.Error("failed to create root directory", "dir", rootDir, "error", err)
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	return &Manager{
		rootDir: rootDir,
	}, nil
}

// RegisterCode stores the code of a newly deployed contract. Registered code
// is immutable: a second registration at the same address fails.
func (m *Manager) RegisterCode(address, deployer core.Address, code, descriptor []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contractDir := m.getContractDir(address)
	if _, err := os.Stat(contractDir); err == nil {
		return fmt.Errorf("contract already exists: %s", address)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check contract directory: %w", err)
	}

	if err := os.MkdirAll(contractDir, 0755); err != nil {
		return fmt.Errorf("failed to create contract directory: %w", err)
	}

	contractCode := &ContractCode{
		Address:    address,
		Code:       code,
		Descriptor: descriptor,
		Deployer:   deployer,
		UpdateTime: time.Now(),
		Hash:       core.GetHash(code),
	}

	if err := m.saveContractFiles(contractCode); err != nil {
		os.RemoveAll(contractDir)
		return fmt.Errorf("failed to save contract files: %w", err)
	}

	return nil
}

// GetCode loads a contract; unknown addresses yield core.ErrContractNotFound
func (m *Manager) GetCode(address core.Address) (*ContractCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadContractCode(address)
}

// Exists reports whether code is registered at address
func (m *Manager) Exists(address core.Address) bool {
	_, err := os.Stat(filepath.Join(m.getContractDir(address), metadataFile))
	return err == nil
}

// List returns the registered contract addresses in directory order
func (m *Manager) List() ([]core.Address, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	addrs := make([]core.Address, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		addr, err := core.ParseAddress(entry.Name())
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].String() < addrs[j].String() })
	return addrs, nil
}

func (m *Manager) getContractDir(address core.Address) string {
	return filepath.Join(m.rootDir, address.String())
}

func (m *Manager) saveContractFiles(code *ContractCode) error {
	dir := m.getContractDir(code.Address)

	if err := os.WriteFile(filepath.Join(dir, codeFile), code.Code, 0644); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, descriptorFile), code.Descriptor, 0644); err != nil {
		return fmt.Errorf("failed to save descriptor: %w", err)
	}

	metadata := ContractMetadata{
		Hash:       code.Hash,
		Deployer:   code.Deployer,
		UpdateTime: code.UpdateTime,
	}
	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	// metadata goes last; its presence marks a complete registration
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metadataBytes, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	return nil
}

func (m *Manager) loadContractCode(address core.Address) (*ContractCode, error) {
	dir := m.getContractDir(address)

	metadataBytes, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrContractNotFound, address.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata ContractMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	code, err := os.ReadFile(filepath.Join(dir, codeFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	if core.GetHash(code) != metadata.Hash {
		return nil, fmt.Errorf("code of %s does not match its recorded hash", address.Hex())
	}

	descriptor, err := os.ReadFile(filepath.Join(dir, descriptorFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	return &ContractCode{
		Address:    address,
		Code:       code,
		Descriptor: descriptor,
		Deployer:   metadata.Deployer,
		UpdateTime: metadata.UpdateTime,
		Hash:       metadata.Hash,
	}, nil
}
