package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/bind"
	"github.com/govm-net/counter/config"
	"github.com/govm-net/counter/contracts/counter"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/node"
	"github.com/govm-net/counter/provider"
	"github.com/govm-net/counter/vm"
)

var (
	listenAddress string
	contextType   string
	genesis       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a ledger node",
	Long: `Run the ledger behind JSON-RPC, with a websocket event feed and metrics.
With --genesis the counter is deployed on first start and the manifest is written.
Example: counterctl serve --listen 127.0.0.1:8545 --genesis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.ListenAddress = listenAddress
		}
		if cmd.Flags().Changed("context") {
			cfg.ContextType = contextType
		}

		engine, err := vm.NewEngine(&vm.Config{
			CodeManagerDir: filepath.Join(cfg.DataDir, "code"),
			ContextType:    cfg.ContextType,
			ContextParams:  map[string]any{"db_path": filepath.Join(cfg.DataDir, "ledger.db")},
			GasLimit:       cfg.GasLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}
		defer engine.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if genesis {
			if err := deployGenesis(ctx, engine, cfg); err != nil {
				return err
			}
		}

		n, err := node.New(engine, node.Config{
			ListenAddress:  cfg.ListenAddress,
			AllowedOrigins: cfg.AllowedOrigins,
		})
		if err != nil {
			return err
		}
		return n.Run(ctx)
	},
}

// deployGenesis deploys the counter unless the manifest already points at
// a contract this node knows
func deployGenesis(ctx context.Context, engine *vm.Engine, cfg *config.Config) error {
	if m, err := config.LoadManifest(cfg.ManifestPath); err == nil {
		if addr, err := core.ParseAddress(m.ContractAddress); err == nil {
			if _, err := engine.Descriptor(addr); err == nil {
				slog.Info("Counter already deployed", "address", addr.Hex())
				return nil
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	account, err := loadAccount(cfg)
	if err != nil {
		return err
	}
	args, err := json.Marshal(map[string]uint64{"startValue": cfg.StartValue})
	if err != nil {
		return err
	}
	pending, err := bind.DeployContract(ctx, provider.NewLocal(engine), account, counter.Source, args)
	if err != nil {
		return fmt.Errorf("failed to deploy counter: %w", err)
	}
	receipt, err := pending.Wait(ctx)
	if err != nil {
		return fmt.Errorf("counter deployment failed: %w", err)
	}

	m := &config.Manifest{
		ContractAddress: receipt.ContractAddress.Hex(),
		Deployer:        account.Address().Hex(),
		TxHash:          receipt.TxHash.Hex(),
		BlockHeight:     receipt.BlockHeight,
		StartValue:      cfg.StartValue,
		NodeURL:         cfg.NodeURL,
		DeployedAt:      time.Now().UTC(),
	}
	if err := m.Save(cfg.ManifestPath); err != nil {
		return err
	}
	slog.Info("Counter deployed", "address", m.ContractAddress, "startValue", cfg.StartValue, "manifest", cfg.ManifestPath)
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "Listen address (COUNTER_LISTEN_ADDRESS)")
	serveCmd.Flags().StringVar(&contextType, "context", "", "State context: memory or db (COUNTER_CONTEXT)")
	serveCmd.Flags().BoolVar(&genesis, "genesis", false, "Deploy the counter on first start")
}
