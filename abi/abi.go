// Package abi extracts the interface descriptor of a Go contract and
// generates the dispatch handlers the engine calls.
package abi

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// ContextType is the parameter type the engine fills in itself
const ContextType = "core.Context"

var ErrInvalidDescriptor = errors.New("invalid interface descriptor")

// ABI represents the Application Binary Interface of a contract
type ABI struct {
	PackageName string     `json:"package_name,omitempty"`
	Functions   []Function `json:"functions,omitempty"`
	Events      []Event    `json:"events,omitempty"`
}

// Function represents a function in the contract
type Function struct {
	Name       string      `json:"name,omitempty"`
	Inputs     []Parameter `json:"inputs,omitempty"`
	Outputs    []Parameter `json:"outputs,omitempty"`
	IsExported bool        `json:"is_exported,omitempty"`
}

// Event represents a contract event (from core.Context.Log calls)
type Event struct {
	Name       string      `json:"name,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Parameter represents a function parameter or event field
type Parameter struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// ExtractABI extracts the ABI information from contract code
func ExtractABI(code []byte) (*ABI, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", code, parser.AllErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract: %w", err)
	}

	abi := &ABI{
		PackageName: file.Name.Name,
		Functions:   make([]Function, 0),
		Events:      make([]Event, 0),
	}
	seen := make(map[string]bool)

	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		// methods and unexported functions are not callable
		if !ok || funcDecl.Recv != nil || !funcDecl.Name.IsExported() {
			continue
		}

		function := Function{
			Name:       funcDecl.Name.Name,
			IsExported: true,
			Inputs:     extractParameters(funcDecl.Type.Params),
			Outputs:    extractParameters(funcDecl.Type.Results),
		}

		// the same event may be emitted from several functions
		for _, ev := range extractEventsFromFunction(funcDecl) {
			if seen[ev.Name] {
				continue
			}
			seen[ev.Name] = true
			abi.Events = append(abi.Events, ev)
		}

		abi.Functions = append(abi.Functions, function)
	}

	return abi, nil
}

// extractEventsFromFunction collects ctx.Log calls with a literal event name
func extractEventsFromFunction(funcDecl *ast.FuncDecl) []Event {
	events := make([]Event, 0)
	if funcDecl.Body == nil {
		return events
	}

	ast.Inspect(funcDecl.Body, func(node ast.Node) bool {
		callExpr, ok := node.(*ast.CallExpr)
		if !ok {
			return true
		}
		selExpr, ok := callExpr.Fun.(*ast.SelectorExpr)
		if !ok || selExpr.Sel.Name != "Log" || len(callExpr.Args) < 1 {
			return true
		}

		eventName, ok := callExpr.Args[0].(*ast.BasicLit)
		if !ok || eventName.Kind != token.STRING {
			return true
		}

		event := Event{
			Name:       strings.Trim(eventName.Value, "\""),
			Parameters: make([]Parameter, 0),
		}

		// key/value pairs
		for i := 1; i+1 < len(callExpr.Args); i += 2 {
			key, ok := callExpr.Args[i].(*ast.BasicLit)
			if !ok || key.Kind != token.STRING {
				continue
			}
			event.Parameters = append(event.Parameters, Parameter{
				Name: strings.Trim(key.Value, "\""),
			})
		}

		events = append(events, event)
		return true
	})

	return events
}

// extractParameters extracts parameter information from a field list
func extractParameters(fieldList *ast.FieldList) []Parameter {
	if fieldList == nil {
		return nil
	}

	params := make([]Parameter, 0)
	for _, field := range fieldList.List {
		typeStr := getTypeString(field.Type)
		if len(field.Names) == 0 {
			params = append(params, Parameter{Type: typeStr})
			continue
		}
		for _, name := range field.Names {
			params = append(params, Parameter{Name: name.Name, Type: typeStr})
		}
	}

	return params
}

// getTypeString converts an ast.Expr to its string representation
func getTypeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + getTypeString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + getTypeString(t.Elt)
		}
		if lit, ok := t.Len.(*ast.BasicLit); ok {
			return fmt.Sprintf("[%s]%s", lit.Value, getTypeString(t.Elt))
		}
		return "[...]" + getTypeString(t.Elt)
	case *ast.SelectorExpr:
		return fmt.Sprintf("%s.%s", getTypeString(t.X), t.Sel.Name)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", getTypeString(t.Key), getTypeString(t.Value))
	case *ast.InterfaceType:
		return "any"
	case *ast.StructType:
		return "struct{}"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Parse decodes a descriptor produced by Marshal
func Parse(data []byte) (*ABI, error) {
	var abi ABI
	if err := json.Unmarshal(data, &abi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if len(abi.Functions) == 0 {
		return nil, fmt.Errorf("%w: no functions", ErrInvalidDescriptor)
	}
	return &abi, nil
}

// Marshal encodes the descriptor as indented JSON
func (abi *ABI) Marshal() ([]byte, error) {
	return json.MarshalIndent(abi, "", "  ")
}

// Function looks up an exported function by name
func (abi *ABI) Function(name string) (Function, bool) {
	for _, fn := range abi.Functions {
		if fn.Name == name && fn.IsExported {
			return fn, true
		}
	}
	return Function{}, false
}

// Event looks up an event by name
func (abi *ABI) Event(name string) (Event, bool) {
	for _, ev := range abi.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

// CallInputs returns the inputs a caller supplies, i.e. every input except
// the core.Context the engine passes in
func (fn Function) CallInputs() []Parameter {
	inputs := make([]Parameter, 0, len(fn.Inputs))
	for _, in := range fn.Inputs {
		if in.Type != ContextType {
			inputs = append(inputs, in)
		}
	}
	return inputs
}

// EncodeArgs maps positional arguments onto the JSON object the generated
// handler for fn decodes
func (fn Function) EncodeArgs(args ...any) (json.RawMessage, error) {
	inputs := fn.CallInputs()
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(inputs), len(args))
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	obj := make(map[string]any, len(inputs))
	for i, in := range inputs {
		obj[in.Name] = args[i]
	}
	return json.Marshal(obj)
}

// String returns a string representation of the ABI
func (abi *ABI) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Package: %s\n", abi.PackageName))

	sb.WriteString("\nFunctions:\n")
	for _, fn := range abi.Functions {
		sb.WriteString(fmt.Sprintf("  %s(%s)", fn.Name, joinParams(fn.Inputs)))
		switch len(fn.Outputs) {
		case 0:
		case 1:
			sb.WriteString(" " + fn.Outputs[0].Type)
		default:
			sb.WriteString(" (" + joinParams(fn.Outputs) + ")")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nEvents:\n")
	for _, event := range abi.Events {
		names := make([]string, 0, len(event.Parameters))
		for _, p := range event.Parameters {
			names = append(names, p.Name)
		}
		sb.WriteString(fmt.Sprintf("  %s(%s)\n", event.Name, strings.Join(names, ", ")))
	}

	return sb.String()
}

func joinParams(params []Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Name != "" {
			parts = append(parts, p.Name+" "+p.Type)
		} else {
			parts = append(parts, p.Type)
		}
	}
	return strings.Join(parts, ", ")
}
