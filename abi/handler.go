package abi

import (
	"fmt"
	"go/format"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CorePackage is the import path generated handlers use for core.Context
const CorePackage = "github.com/govm-net/counter/core"

// HandlerGenerator generates handler functions from ABI
type HandlerGenerator struct {
	abi   *ABI
	title cases.Caser
}

var EnableFormatAfterGenerate = true

// NewHandlerGenerator creates a new handler generator
func NewHandlerGenerator(abi *ABI) *HandlerGenerator {
	return &HandlerGenerator{
		abi:   abi,
		title: cases.Title(language.English),
	}
}

// GenerateHandlers generates handler functions for all exported functions
// and the handlers table that maps function names to them
func (g *HandlerGenerator) GenerateHandlers() string {
	var sb strings.Builder

	decodes := false
	for _, fn := range g.abi.Functions {
		if fn.IsExported && len(fn.CallInputs()) > 0 {
			decodes = true
		}
	}

	sb.WriteString("// Code generated by counterctl abi. DO NOT EDIT.\n\n")
	sb.WriteString(fmt.Sprintf("package %s\n\n", g.abi.PackageName))
	sb.WriteString("import (\n")
	if decodes {
		sb.WriteString("\t\"encoding/json\"\n")
		sb.WriteString("\t\"fmt\"\n\n")
	}
	sb.WriteString(fmt.Sprintf("\t%q\n", CorePackage))
	sb.WriteString(")\n\n")

	for _, fn := range g.abi.Functions {
		if !fn.IsExported {
			continue
		}
		sb.WriteString(g.generateParamStruct(fn))
		sb.WriteString(g.generateHandler(fn))
	}

	sb.WriteString("var handlers = map[string]func(core.Context, []byte) (any, error){\n")
	for _, fn := range g.abi.Functions {
		if fn.IsExported {
			sb.WriteString(fmt.Sprintf("\t%q: handle%s,\n", fn.Name, fn.Name))
		}
	}
	sb.WriteString("}\n")

	return sb.String()
}

// generateParamStruct generates the argument struct of a function; functions
// without caller-supplied inputs get none
func (g *HandlerGenerator) generateParamStruct(fn Function) string {
	inputs := fn.CallInputs()
	if len(inputs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("type %sParams struct {\n", fn.Name))
	for _, input := range inputs {
		sb.WriteString(fmt.Sprintf("\t%s %s `json:\"%s,omitempty\"`\n",
			g.title.String(input.Name), input.Type, input.Name))
	}
	sb.WriteString("}\n\n")

	return sb.String()
}

// generateHandler generates a handler function for a given function
func (g *HandlerGenerator) generateHandler(fn Function) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("func handle%s(ctx core.Context, params []byte) (any, error) {\n", fn.Name))

	if len(fn.CallInputs()) > 0 {
		sb.WriteString(fmt.Sprintf("\tvar args %sParams\n", fn.Name))
		sb.WriteString("\tif len(params) > 0 {\n")
		sb.WriteString("\t\tif err := json.Unmarshal(params, &args); err != nil {\n")
		sb.WriteString("\t\t\treturn nil, fmt.Errorf(\"failed to unmarshal params: %w\", err)\n")
		sb.WriteString("\t\t}\n")
		sb.WriteString("\t}\n\n")
	}

	results := make([]string, len(fn.Outputs))
	for i, output := range fn.Outputs {
		if output.Name != "" {
			results[i] = output.Name
		} else {
			results[i] = fmt.Sprintf("result%d", i)
		}
	}

	sb.WriteString("\t")
	if len(results) > 0 {
		sb.WriteString(strings.Join(results, ", ") + " := ")
	}

	args := make([]string, 0, len(fn.Inputs))
	for _, input := range fn.Inputs {
		if input.Type == ContextType {
			args = append(args, "ctx")
		} else {
			args = append(args, "args."+g.title.String(input.Name))
		}
	}
	sb.WriteString(fmt.Sprintf("%s(%s)\n\n", fn.Name, strings.Join(args, ", ")))

	switch len(results) {
	case 0:
		sb.WriteString("\treturn nil, nil\n")
	case 1:
		sb.WriteString(fmt.Sprintf("\treturn %s, nil\n", results[0]))
	default:
		sb.WriteString(fmt.Sprintf("\treturn []any{%s}, nil\n", strings.Join(results, ", ")))
	}
	sb.WriteString("}\n\n")
	return sb.String()
}

// GenerateHandlerFile generates a complete handler file
func GenerateHandlerFile(abi *ABI) (string, error) {
	code := NewHandlerGenerator(abi).GenerateHandlers()
	if !EnableFormatAfterGenerate {
		return code, nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", fmt.Errorf("failed to format code: %w", err)
	}
	return string(formatted), nil
}
