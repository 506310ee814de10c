// table-admin drives a fair table's round lifecycle on a node: it opens
// rounds, holds reveal custody, and submits each transition when its
// deadline passes. Point it at a node over HTTP, or run an embedded
// single-replica node with --data-dir.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fairtable/internal/config"
	"fairtable/internal/exec"
	"fairtable/internal/kvdb"
	"fairtable/internal/logging"
	"fairtable/internal/orchestrator"
)

func main() {
	root := &cobra.Command{
		Use:           "table-admin",
		Short:         "Drive a fair table's round lifecycle on a node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), statusCmd(), resyncCmd(), keygenCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the table and submit due transitions until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCfg, err := config.LoadLog()
			if err != nil {
				return err
			}
			logging.Init("table-admin", logCfg)
			cfg, err := config.LoadAdmin()
			if err != nil {
				return err
			}
			o, cleanup, err := buildOrchestrator(cfg, dataDir)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := o.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info().Msg("orchestrator stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "run an embedded node storing chain state in this directory")
	return cmd
}

func statusCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the table round, committed seq, and held reveals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAdmin()
			if err != nil {
				return err
			}
			o, cleanup, err := buildOrchestrator(cfg, dataDir)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			st, err := o.Status(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "read an embedded node's state from this directory")
	return cmd
}

func resyncCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Reset the reserved seq counter from the node's committed seq",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAdmin()
			if err != nil {
				return err
			}
			o, cleanup, err := buildOrchestrator(cfg, dataDir)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			seq, err := o.ResyncSeq(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("seq for %s reset to %d\n", cfg.Signer, seq)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "read an embedded node's state from this directory")
	return cmd
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 authority keypair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			fmt.Printf("ADMIN_KEY=%s\n", hex.EncodeToString(priv.Seed()))
			fmt.Printf("public key (for authority_keys): %s\n", hex.EncodeToString(pub))
			return nil
		},
	}
}

func buildOrchestrator(cfg config.AdminConfig, dataDir string) (*orchestrator.Orchestrator, func(), error) {
	priv, err := cfg.PrivateKey()
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var node orchestrator.NodeClient
	if dataDir != "" {
		local, closeDB, err := openLocalNode(cfg, dataDir)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, closeDB)
		node = local
	} else {
		node = orchestrator.NewHTTPNode(cfg.NodeURL, 0)
	}

	var seq orchestrator.SeqSource
	if cfg.RedisAddr != "" {
		rs, err := orchestrator.NewRedisSeqSource(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = rs.Close() })
		seq = rs
	} else {
		log.Warn().Msg("no REDIS_ADDR set, seq reservations held in process memory")
		seq = orchestrator.NewLocalSeqSource()
	}

	o, err := orchestrator.New(orchestrator.Options{
		TableID:  cfg.TableID,
		Signer:   cfg.Signer,
		Priv:     priv,
		Node:     node,
		Seq:      seq,
		Tick:     time.Duration(cfg.TickMS) * time.Millisecond,
		RetryTTL: time.Duration(cfg.RetryTTLMS) * time.Millisecond,
	}, log.Logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return o, cleanup, nil
}

// openLocalNode runs a single-replica node in process, seeding the table
// from the TOML definition on first use.
func openLocalNode(cfg config.AdminConfig, dataDir string) (*orchestrator.LocalNode, func(), error) {
	table, err := config.LoadTable(cfg.TablePath)
	if err != nil {
		return nil, nil, err
	}
	db, err := kvdb.Open(kvdb.BackendLevelDB, "fairtable", dataDir)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]ed25519.PublicKey, 0, len(table.AuthorityKeys))
	for _, k := range table.AuthorityKeys {
		keys = append(keys, ed25519.PublicKey(k))
	}
	ex := exec.New(db, keys, log.Logger)

	if _, ok, err := exec.NewState(exec.NewOverlay(db)).Config(cfg.TableID); err != nil {
		_ = db.Close()
		return nil, nil, err
	} else if !ok {
		if err := ex.InitTable(cfg.TableID, table); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return orchestrator.NewLocalNode(ex, db), func() { _ = db.Close() }, nil
}
