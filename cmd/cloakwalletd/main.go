// Command cloakwalletd is a cobra CLI exposing the wallet facade over the
// local storm-backed wallet database. Subcommands do nothing but marshal
// flags into a facade call.
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/keyledger"
	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/rpc"
	"github.com/threefoldtech/cloakwallet/txbuilder"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/wallet"
)

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

// staticDecoyPool is the simplest DecoyProvider available to the CLI: the
// wallet's own stored transactions, already present locally. A network-wide
// decoy pool would come from the node.
type staticDecoyPool struct {
	store    persist.KeyValueStore
	walletID string
}

func (p staticDecoyPool) Snapshot() []types.WalletTx {
	txs, err := txbuilder.ListWalletTxs(p.store, p.walletID)
	if err != nil {
		return nil
	}
	return txs
}

func (p staticDecoyPool) IsDownloading() bool { return false }

func openFacade(cfg Config, walletID, passphrase string) (*wallet.Facade, *persist.StormStore, error) {
	if err := os.MkdirAll(cfg.WalletDir, 0700); err != nil {
		return nil, nil, err
	}
	store, err := persist.OpenStormStore(cfg.WalletDir)
	if err != nil {
		return nil, nil, err
	}

	masterKey := crypto.TwofishKey(sha256.Sum256([]byte(passphrase)))
	ledger := keyledger.New(store, masterKey)

	log, err := persist.NewFileLogger("cloakwalletd", filepath.Join(cfg.WalletDir, "cloakwalletd.log"))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	node := rpc.New(cfg.NodeAddr)
	decoys := staticDecoyPool{store: store, walletID: walletID}

	return wallet.New(store, ledger, decoys, node, log), store, nil
}

func main() {
	var configDir, walletID, passphrase, mnemonic, sessionFlag string

	root := &cobra.Command{
		Use:   "cloakwalletd",
		Short: "cloakwallet daemon: a confidential-payments HD wallet",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing cloakwalletd.yaml")
	root.PersistentFlags().StringVar(&walletID, "wallet", "", "wallet id")
	root.PersistentFlags().StringVar(&passphrase, "passphrase", "", "wallet encryption passphrase")

	mustLoadConfig := func() Config {
		cfg, err := loadConfig(configDir)
		if err != nil {
			die(err)
		}
		keyledger.SetNetwork(cfg.Environment == "TestNet")
		return cfg
	}

	mustSession := func() uuid.UUID {
		id, err := uuid.Parse(sessionFlag)
		if err != nil {
			die(fmt.Errorf("cloakwalletd: --session is required and must be a valid session id: %w", err))
		}
		return id
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a new wallet from a mnemonic",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			store, err := persist.OpenStormStore(cfg.WalletDir)
			if err != nil {
				die(err)
			}
			defer store.Close()
			masterKey := crypto.TwofishKey(sha256.Sum256([]byte(passphrase)))
			ledger := keyledger.New(store, masterKey)

			if mnemonic == "" {
				m, err := crypto.NewMnemonic(24)
				if err != nil {
					die(err)
				}
				mnemonic = m
				fmt.Println("mnemonic:", mnemonic)
			}
			id, err := ledger.CreateWallet(mnemonic, passphrase)
			if err != nil {
				die(err)
			}
			fmt.Println("wallet id:", id)
		},
	}
	createCmd.Flags().StringVar(&mnemonic, "mnemonic", "", "existing mnemonic to restore from (generates one if empty)")

	unlockCmd := &cobra.Command{
		Use:   "unlock",
		Short: "derive a session's spend/scan keys (prints a session id)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			sessionID, err := f.Unlock(walletID, mnemonic, passphrase, types.SessionTypeCoin)
			if err != nil {
				die(err)
			}
			fmt.Println("session id:", sessionID)
		},
	}
	unlockCmd.Flags().StringVar(&mnemonic, "mnemonic", "", "wallet mnemonic")

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "print the wallet's stealth addresses",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			addrs, err := f.Addresses(walletID)
			if err != nil {
				die(err)
			}
			for _, a := range addrs {
				fmt.Println(a)
			}
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "print the wallet's available balance",
		Run: func(cmd *cobra.Command, args []string) {
			sessionID := mustSession()
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			avail, err := f.AvailableBalance(sessionID)
			if err != nil {
				die(err)
			}
			fmt.Println(avail)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "print the wallet's transaction history",
		Run: func(cmd *cobra.Command, args []string) {
			sessionID := mustSession()
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			rows, err := f.History(sessionID)
			if err != nil {
				die(err)
			}
			for _, r := range rows {
				fmt.Printf("%s\t%d\t%d\t%s\n", r.DateTime, r.Type, r.Amount, r.Address)
			}
		},
	}

	var paymentID string
	receiveCmd := &cobra.Command{
		Use:   "receive",
		Short: "scan a payment id for outputs addressed to this wallet",
		Run: func(cmd *cobra.Command, args []string) {
			sessionID := mustSession()
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			if err := f.ReceivePayment(context.Background(), sessionID, paymentID); err != nil {
				die(err)
			}
			fmt.Println("ok")
		},
	}
	receiveCmd.Flags().StringVar(&paymentID, "payment-id", "", "payment id to fetch outputs for")

	var amount uint64
	var memo, recipient string
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "build and submit a payment",
		Run: func(cmd *cobra.Command, args []string) {
			sessionID := mustSession()
			cfg := mustLoadConfig()
			f, store, err := openFacade(cfg, walletID, passphrase)
			if err != nil {
				die(err)
			}
			defer store.Close()
			ctx := context.Background()
			if err := f.CreatePayment(ctx, sessionID, types.Currency(amount), memo, recipient); err != nil {
				die(err)
			}
			if err := f.Send(ctx, sessionID); err != nil {
				die(err)
			}
			fmt.Println("ok")
		},
	}
	sendCmd.Flags().Uint64Var(&amount, "amount", 0, "payment amount in atomic units")
	sendCmd.Flags().StringVar(&memo, "memo", "", "payment memo")
	sendCmd.Flags().StringVar(&recipient, "to", "", "recipient stealth address")

	for _, c := range []*cobra.Command{balanceCmd, historyCmd, receiveCmd, sendCmd} {
		c.Flags().StringVar(&sessionFlag, "session", "", "session id returned by unlock")
	}

	root.AddCommand(createCmd, unlockCmd, addressCmd, balanceCmd, historyCmd, receiveCmd, sendCmd)
	if err := root.Execute(); err != nil {
		die(err)
	}
}
