package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCode       = []byte("package counter\n\nfunc GetCount() uint64 { return 0 }\n")
	testDescriptor = []byte(`{"package_name":"counter","functions":[{"name":"GetCount","is_exported":true}]}`)
)

func TestManager(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	addr := core.AddressFromString("1234567890abcdef1234567890abcdef12345678")
	deployer := core.AddressFromString("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	assert.False(t, manager.Exists(addr))
	require.NoError(t, manager.RegisterCode(addr, deployer, testCode, testDescriptor))
	assert.True(t, manager.Exists(addr))

	contractDir := filepath.Join(tmpDir, addr.String())
	assert.FileExists(t, filepath.Join(contractDir, "contract.go.txt"))
	assert.FileExists(t, filepath.Join(contractDir, "abi.json"))
	assert.FileExists(t, filepath.Join(contractDir, "metadata.json"))

	contractCode, err := manager.GetCode(addr)
	require.NoError(t, err)
	assert.Equal(t, testCode, contractCode.Code)
	assert.Equal(t, testDescriptor, contractCode.Descriptor)
	assert.Equal(t, deployer, contractCode.Deployer)
	assert.Equal(t, core.GetHash(testCode), contractCode.Hash)

	addrs, err := manager.List()
	require.NoError(t, err)
	assert.Equal(t, []core.Address{addr}, addrs)
}

func TestGetCodeUnknownContract(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.GetCode(core.AddressFromString("1234567890abcdef1234567890abcdef12345678"))
	assert.ErrorIs(t, err, core.ErrContractNotFound)
}

func TestContractImmutability(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	addr := core.AddressFromString("1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, manager.RegisterCode(addr, core.ZeroAddress, testCode, testDescriptor))

	err = manager.RegisterCode(addr, core.ZeroAddress, []byte("package other\n"), testDescriptor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract already exists")

	contractCode, err := manager.GetCode(addr)
	require.NoError(t, err)
	assert.Equal(t, testCode, contractCode.Code)
}

func TestTamperedCodeIsRejected(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	addr := core.AddressFromString("1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, manager.RegisterCode(addr, core.ZeroAddress, testCode, testDescriptor))

	path := filepath.Join(tmpDir, addr.String(), "contract.go.txt")
	require.NoError(t, os.WriteFile(path, []byte("package evil\n"), 0644))

	_, err = manager.GetCode(addr)
	assert.ErrorContains(t, err, "does not match")
}
