package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govm-net/counter/wallet"
)

var showCount uint32

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage signing keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a BIP-39 mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, err := wallet.NewMnemonic()
		if err != nil {
			return err
		}
		w, err := wallet.FromMnemonic(mnemonic, "")
		if err != nil {
			return err
		}
		account, err := w.Account(0)
		if err != nil {
			return err
		}
		fmt.Printf("Mnemonic: %s\n", mnemonic)
		fmt.Printf("Address:  %s (%s)\n", account.Address().Hex(), account.Path())
		fmt.Println("Export it as COUNTER_MNEMONIC to sign with it.")
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the addresses derived from COUNTER_MNEMONIC",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Mnemonic == "" {
			account, err := loadAccount(cfg)
			if err != nil {
				return err
			}
			fmt.Println(account.Address().Hex())
			return nil
		}
		w, err := wallet.FromMnemonic(cfg.Mnemonic, "")
		if err != nil {
			return err
		}
		for i := uint32(0); i < showCount; i++ {
			account, err := w.Account(i)
			if err != nil {
				return err
			}
			marker := " "
			if i == cfg.AccountIndex {
				marker = "*"
			}
			fmt.Printf("%s %s %s\n", marker, account.Path(), account.Address().Hex())
		}
		return nil
	},
}

func init() {
	keysShowCmd.Flags().Uint32VarP(&showCount, "count", "n", 5, "Number of accounts to derive")
	keysCmd.AddCommand(keysNewCmd)
	keysCmd.AddCommand(keysShowCmd)
}
