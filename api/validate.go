// Package api checks contract source before the engine accepts it for
// deployment.
package api

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

var ErrInvalidContract = errors.New("invalid contract")

// ContractConfig defines configuration for contract validation
type ContractConfig struct {
	// MaxCodeSize is the maximum size of contract code in bytes
	MaxCodeSize int

	// AllowedImports contains the packages that can be imported by contracts
	AllowedImports []string
}

// DefaultContractConfig returns a default configuration for contracts
func DefaultContractConfig() ContractConfig {
	return ContractConfig{
		MaxCodeSize: 1024 * 1024, // 1MB
		AllowedImports: []string{
			"github.com/govm-net/counter/core",
			"errors",
			"strconv",
		},
	}
}

type IKeywordValidator func(node ast.Node) error

// DefaultKeywordValidator rejects constructs that make execution
// non-deterministic or escape the engine's control
var DefaultKeywordValidator IKeywordValidator = func(node ast.Node) error {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *ast.GoStmt:
		return fmt.Errorf("restricted keyword 'go' is not allowed")
	case *ast.SelectStmt:
		return fmt.Errorf("restricted keyword 'select' is not allowed")
	case *ast.RangeStmt:
		return fmt.Errorf("restricted keyword 'range' is not allowed")
	case *ast.CallExpr:
		if ident, ok := n.Fun.(*ast.Ident); ok && ident.Name == "recover" {
			return fmt.Errorf("restricted keyword 'recover' is not allowed")
		}
	}
	return nil
}

// ValidateContract parses code and checks it against cfg. Every failure
// wraps ErrInvalidContract.
func ValidateContract(code []byte, cfg ContractConfig) error {
	if len(code) == 0 {
		return fmt.Errorf("%w: empty code", ErrInvalidContract)
	}
	if cfg.MaxCodeSize > 0 && len(code) > cfg.MaxCodeSize {
		return fmt.Errorf("%w: code size %d exceeds limit %d", ErrInvalidContract, len(code), cfg.MaxCodeSize)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "contract.go", code, parser.AllErrors)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContract, err)
	}
	if file.Name.Name == "main" {
		return fmt.Errorf("%w: package main is not a contract", ErrInvalidContract)
	}

	allowed := make(map[string]bool, len(cfg.AllowedImports))
	for _, imp := range cfg.AllowedImports {
		allowed[imp] = true
	}
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return fmt.Errorf("%w: import %s: %v", ErrInvalidContract, imp.Path.Value, err)
		}
		if !allowed[path] {
			return fmt.Errorf("%w: import %q is not allowed", ErrInvalidContract, path)
		}
	}

	var violation error
	ast.Inspect(file, func(node ast.Node) bool {
		if violation != nil {
			return false
		}
		if err := DefaultKeywordValidator(node); err != nil {
			violation = fmt.Errorf("%w: %s: %v", ErrInvalidContract, fset.Position(node.Pos()), err)
			return false
		}
		return true
	})
	return violation
}
