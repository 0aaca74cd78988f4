package vm

import (
	"context"
	"testing"

	"github.com/govm-net/counter/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exportsModule exports GetCount and Increment, both () -> i32
var exportsModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // type section
	0x03, 0x03, 0x02, 0x00, 0x00, // function section
	0x07, 0x18, 0x02, // export section
	0x08, 'G', 'e', 't', 'C', 'o', 'u', 'n', 't', 0x00, 0x00,
	0x09, 'I', 'n', 'c', 'r', 'e', 'm', 'e', 'n', 't', 0x00, 0x01,
	0x0a, 0x0b, 0x02, // code section
	0x04, 0x00, 0x41, 0x00, 0x0b,
	0x04, 0x00, 0x41, 0x00, 0x0b,
}

// importsModule imports env.log : () -> i32
var importsModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	0x02, 0x0b, 0x01, 0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x00,
}

func TestInspectWasm(t *testing.T) {
	descriptor := &abi.ABI{
		PackageName: "counter",
		Functions: []abi.Function{
			{Name: "GetCount", IsExported: true},
			{Name: "Increment", IsExported: true},
			{Name: "Decrement", IsExported: true},
		},
	}

	report, err := InspectWasm(context.Background(), exportsModule, descriptor)
	require.NoError(t, err)

	require.Len(t, report.Exports, 2)
	assert.Equal(t, "GetCount() -> (i32)", report.Exports[0].String())
	assert.Equal(t, "Increment() -> (i32)", report.Exports[1].String())
	assert.Empty(t, report.Imports)
	assert.Equal(t, []string{"Decrement"}, report.Missing)
}

func TestInspectWasmImports(t *testing.T) {
	report, err := InspectWasm(context.Background(), importsModule, nil)
	require.NoError(t, err)

	require.Len(t, report.Imports, 1)
	assert.Equal(t, "env", report.Imports[0].Module)
	assert.Equal(t, "log", report.Imports[0].Name)
	assert.Equal(t, []string{"i32"}, report.Imports[0].Results)
	assert.Empty(t, report.Missing)
}

func TestInspectWasmInvalid(t *testing.T) {
	_, err := InspectWasm(context.Background(), []byte("not wasm"), nil)
	assert.Error(t, err)

	_, err = InspectWasmFile(context.Background(), "/nonexistent.wasm", nil)
	assert.Error(t, err)
}
