package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/abi"
	"github.com/govm-net/counter/vm"
)

var inspectSource string

var inspectCmd = &cobra.Command{
	Use:   "inspect <contract.wasm>",
	Short: "Inspect a compiled contract artifact",
	Long: `List the exports, imports and memories of a WASM artifact and check that it
exports every function of the contract descriptor (the bundled counter unless
--source is given).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var descriptor *abi.ABI
		if inspectSource != "" {
			code, err := os.ReadFile(inspectSource)
			if err != nil {
				return fmt.Errorf("failed to read source file: %w", err)
			}
			if descriptor, err = abi.ExtractABI(code); err != nil {
				return err
			}
		} else {
			data, err := counterDescriptor()
			if err != nil {
				return err
			}
			if descriptor, err = abi.Parse(data); err != nil {
				return err
			}
		}

		report, err := vm.InspectWasmFile(cmd.Context(), args[0], descriptor)
		if err != nil {
			return err
		}

		fmt.Printf("Inspecting %s\n", args[0])
		fmt.Println("\nExported functions:")
		for _, fn := range report.Exports {
			fmt.Printf("  - %s\n", fn)
		}
		fmt.Println("\nImported functions:")
		for _, fn := range report.Imports {
			fmt.Printf("  - %s\n", fn)
		}
		fmt.Println("\nExported memories:")
		for _, mem := range report.Memory {
			fmt.Printf("  - %s\n", mem)
		}
		if len(report.Missing) > 0 {
			return fmt.Errorf("artifact does not export %v", report.Missing)
		}
		fmt.Println("\nAll descriptor functions are exported")
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectSource, "source", "s", "", "Contract source the descriptor is extracted from")
}
