package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/abi"
)

var (
	genHandlers bool
	outputFile  string
)

var abiCmd = &cobra.Command{
	Use:   "abi [contract.go]",
	Short: "Print a contract's interface descriptor",
	Long: `Print the interface descriptor extracted from a contract source file, or
with --handlers generate its dispatch handlers. Without a file the bundled
counter is used.
Example: counterctl abi contracts/counter/counter.go --handlers -o counter.handlers.go`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			descriptor *abi.ABI
			err        error
		)
		if len(args) == 0 {
			data, err := counterDescriptor()
			if err != nil {
				return err
			}
			descriptor, err = abi.Parse(data)
			if err != nil {
				return err
			}
		} else {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read source file: %w", err)
			}
			if descriptor, err = abi.ExtractABI(code); err != nil {
				return err
			}
		}

		var out []byte
		if genHandlers {
			src, err := abi.GenerateHandlerFile(descriptor)
			if err != nil {
				return err
			}
			out = []byte(src)
		} else {
			if out, err = descriptor.Marshal(); err != nil {
				return err
			}
			out = append(out, '\n')
		}

		if outputFile == "" {
			_, err = os.Stdout.Write(out)
			return err
		}
		return os.WriteFile(outputFile, out, 0644)
	},
}

func init() {
	abiCmd.Flags().BoolVar(&genHandlers, "handlers", false, "Generate dispatch handlers instead of the descriptor")
	abiCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to file instead of stdout")
}
