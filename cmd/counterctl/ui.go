package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/govm-net/counter/client"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/node"
	"github.com/govm-net/counter/provider"
)

const (
	actionIncrement = "Increment"
	actionDecrement = "Decrement"
	actionRefresh   = "Refresh"
	actionQuit      = "Quit"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Interactive counter client",
	Long: `Show the current count and submit increments and decrements.
Without a configured key the client runs with no wallet provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cfg.ResolveContractAddress()
		if err != nil {
			return err
		}
		descriptor, err := counterDescriptor()
		if err != nil {
			return err
		}

		var p provider.Provider
		account, err := loadAccount(cfg)
		switch {
		case err == nil:
			p = provider.NewWallet(node.NewJSONRPCClient(cfg.NodeURL), []provider.Signer{account}, provider.WithApprover(promptApprove))
		case errors.Is(err, errNoAccount):
			slog.Warn("No signing key configured, starting without a wallet")
		default:
			return err
		}

		c := client.New(p, addr, descriptor, client.Options{
			SurfaceReadErrors:    cfg.SurfaceReadErrors,
			RefreshAfterMutation: cfg.RefreshAfterMutation,
		})
		ctx := cmd.Context()
		c.Start(ctx)
		return runUI(ctx, c)
	},
}

func promptApprove(_ context.Context, accounts []core.Address) error {
	hexes := make([]string, len(accounts))
	for i, a := range accounts {
		hexes[i] = a.Hex()
	}
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Connect %s to the counter", strings.Join(hexes, ", ")),
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err
}

func runUI(ctx context.Context, c *client.Client) error {
	for {
		if err := client.Render(os.Stdout, c.State()); err != nil {
			return err
		}
		sel := promptui.Select{
			Label: "Action",
			Items: []string{actionIncrement, actionDecrement, actionRefresh, actionQuit},
		}
		_, action, err := sel.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch action {
		case actionIncrement:
			c.Increment(ctx)
		case actionDecrement:
			c.Decrement(ctx)
		case actionRefresh:
			c.Refresh(ctx)
		case actionQuit:
			return nil
		}
	}
}
