// Command ledgerctl is the typed command-line front end over the fund
// ledger core (spec §6.1's invocation contract), generalizing the teacher's
// root main.go dispatch-table shape into a cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"

	"fundledger/internal/ledger/backup"
	"fundledger/internal/ledger/engine"
	"fundledger/internal/ledger/store"
	"fundledger/internal/ledgerconfig"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := ledgerconfig.LoadEnv(ledgerconfig.Default())
	if path := os.Getenv("FUNDLEDGER_CONFIG_FILE"); path != "" {
		var err error
		cfg, err = ledgerconfig.LoadFile(cfg, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config file: %v\n", err)
			return 1
		}
	}

	var st store.Store
	switch cfg.DataSource {
	case ledgerconfig.DataSourceMock:
		st = store.NewMockStore()
	case ledgerconfig.DataSourcePostgres:
		pg, err := store.NewPostgresStore(cfg.ConnectionString)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to data store: %v\n", err)
			return 1
		}
		if err := pg.Bootstrap(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to bootstrap schema: %v\n", err)
			return 1
		}
		st = pg
	default:
		fmt.Fprintf(os.Stderr, "unsupported data_source: %s\n", cfg.DataSource)
		return 1
	}
	defer st.Close()

	eng := engine.New(st, cfg)

	backupDir := os.Getenv("FUNDLEDGER_BACKUP_DIR")
	if backupDir == "" {
		backupDir = "./backups"
	}
	if bk, err := backup.NewStore(backupDir); err == nil {
		eng.SetBackupStore(bk)
	} else {
		fmt.Fprintf(os.Stderr, "warning: backup store unavailable: %v\n", err)
	}

	root := newRootCommand(eng)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
