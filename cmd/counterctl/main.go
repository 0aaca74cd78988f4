package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/config"
	_ "github.com/govm-net/counter/context/db"
	_ "github.com/govm-net/counter/context/memory"
	"github.com/govm-net/counter/logging"
)

var (
	cfg       *config.Config
	logCloser io.Closer

	nodeURL      string
	contractAddr string
	manifestPath string
	dataDir      string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "counterctl",
	Short: "Counter ledger node and client",
	Long: `Counter ledger node and client.
Runs the ledger behind JSON-RPC, deploys the counter contract and drives it
from a terminal client. Settings come from COUNTER_* environment variables;
flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("node") {
			cfg.NodeURL = nodeURL
		}
		if flags.Changed("contract") {
			cfg.ContractAddress = contractAddr
		}
		if flags.Changed("manifest") {
			cfg.ManifestPath = manifestPath
		}
		if flags.Changed("data-dir") {
			cfg.DataDir = dataDir
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger, closer, err := logging.New(cfg.Logging(), os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&nodeURL, "node", "", "Node URL (COUNTER_NODE_URL)")
	flags.StringVar(&contractAddr, "contract", "", "Counter contract address (COUNTER_CONTRACT_ADDRESS)")
	flags.StringVar(&manifestPath, "manifest", "", "Deployment manifest (COUNTER_MANIFEST)")
	flags.StringVar(&dataDir, "data-dir", "", "Node data directory (COUNTER_DATA_DIR)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (COUNTER_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(abiCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
