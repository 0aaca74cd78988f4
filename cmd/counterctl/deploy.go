package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/bind"
	"github.com/govm-net/counter/config"
	"github.com/govm-net/counter/contracts/counter"
	"github.com/govm-net/counter/node"
)

var startValue uint64

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the counter contract to a node",
	Long: `Submit a signed deployment of the counter with a start value, wait for
the receipt and record the address in the deployment manifest.
Example: counterctl deploy --start 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("start") {
			cfg.StartValue = startValue
		}
		account, err := loadAccount(cfg)
		if err != nil {
			return err
		}

		initArgs, err := json.Marshal(map[string]uint64{"startValue": cfg.StartValue})
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		pending, err := bind.DeployContract(ctx, node.NewJSONRPCClient(cfg.NodeURL), account, counter.Source, initArgs)
		if err != nil {
			return fmt.Errorf("failed to deploy contract: %w", err)
		}
		receipt, err := pending.Wait(ctx)
		if err != nil {
			return fmt.Errorf("deployment failed: %w", err)
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

		fmt.Printf("Contract deployed successfully!\n")
		fmt.Printf("Contract address: %s\n", m.ContractAddress)
		fmt.Printf("Manifest written to: %s\n", cfg.ManifestPath)
		return nil
	},
}

func init() {
	deployCmd.Flags().Uint64Var(&startValue, "start", 0, "Initial count (COUNTER_START_VALUE)")
}
