package vm

import (
	stdcontext "context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/govm-net/counter/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// WasmFunction describes an exported or imported function of a module
type WasmFunction struct {
	Module  string // import module, empty for exports
	Name    string
	Params  []string
	Results []string
}

func (f WasmFunction) String() string {
	name := f.Name
	if f.Module != "" {
		name = f.Module + "." + f.Name
	}
	return fmt.Sprintf("%s(%s) -> (%s)", name, strings.Join(f.Params, ", "), strings.Join(f.Results, ", "))
}

// WasmReport is the result of inspecting a compiled contract artifact
type WasmReport struct {
	Exports []WasmFunction
	Imports []WasmFunction
	Memory  []string // exported memories
	Missing []string // descriptor functions the module does not export
}

// InspectWasmFile reads and inspects a WASM file
func InspectWasmFile(ctx stdcontext.Context, wasmPath string, descriptor *abi.ABI) (*WasmReport, error) {
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	return InspectWasm(ctx, wasmBytes, descriptor)
}

// InspectWasm compiles wasmBytes without instantiating it and lists its
// functions. When descriptor is set, every exported descriptor function
// must be exported by the module too; the rest are reported as Missing.
func InspectWasm(ctx stdcontext.Context, wasmBytes []byte, descriptor *abi.ABI) (*WasmReport, error) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	defer compiled.Close(ctx)

	report := &WasmReport{
		Exports: describeFunctions(compiled.ExportedFunctions()),
		Imports: describeFunctions(indexImports(compiled.ImportedFunctions())),
	}
	for name := range compiled.ExportedMemories() {
		report.Memory = append(report.Memory, name)
	}
	sort.Strings(report.Memory)

	if descriptor != nil {
		exported := make(map[string]bool, len(report.Exports))
		for _, fn := range report.Exports {
			exported[fn.Name] = true
		}
		for _, fn := range descriptor.Functions {
			if fn.IsExported && !exported[fn.Name] {
				report.Missing = append(report.Missing, fn.Name)
			}
		}
	}
	return report, nil
}

func indexImports(defs []api.FunctionDefinition) map[string]api.FunctionDefinition {
	out := make(map[string]api.FunctionDefinition, len(defs))
	for _, def := range defs {
		module, name, _ := def.Import()
		out[module+"."+name] = def
	}
	return out
}

func describeFunctions(defs map[string]api.FunctionDefinition) []WasmFunction {
	out := make([]WasmFunction, 0, len(defs))
	for key, def := range defs {
		fn := WasmFunction{
			Name:    key,
			Params:  valueTypeNames(def.ParamTypes()),
			Results: valueTypeNames(def.ResultTypes()),
		}
		if module, name, isImport := def.Import(); isImport {
			fn.Module, fn.Name = module, name
		}
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func valueTypeNames(types []api.ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return names
}
