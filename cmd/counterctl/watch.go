package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/node"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print CountChanged notifications as they are committed",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cfg.ResolveContractAddress()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		stream, err := node.DialEvents(ctx, cfg.NodeURL, addr, "CountChanged")
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			stream.Close()
		}()

		for {
			ev, err := stream.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			var value uint64
			if err := ev.Decode("newValue", &value); err != nil {
				return err
			}
			fmt.Printf("block %d tx %s: count is %d\n", ev.BlockHeight, ev.TxHash.Hex(), value)
		}
	},
}
