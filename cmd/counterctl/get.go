package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/bind"
	"github.com/govm-net/counter/node"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current count",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cfg.ResolveContractAddress()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rpc := node.NewJSONRPCClient(cfg.NodeURL)
		descriptor, err := rpc.Descriptor(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to fetch descriptor: %w", err)
		}
		c, err := bind.NewBoundContract(addr, descriptor, rpc, nil)
		if err != nil {
			return err
		}
		var count uint64
		if err := c.Call(ctx, &count, "GetCount"); err != nil {
			return fmt.Errorf("failed to get count: %w", err)
		}
		fmt.Println(count)
		return nil
	},
}
