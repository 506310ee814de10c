package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"fairtable/internal/accounts"
	"fairtable/internal/config"
	"fairtable/internal/live"
	"fairtable/internal/logging"
	httptransport "fairtable/internal/transport/http"
	"fairtable/internal/ws"
)

func main() {
	app, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init("live-server", app.Log)
	cfg := app.Live
	table, err := config.LoadTable(cfg.TablePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TablePath).Msg("load table config failed")
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("accounts store init failed")
	}
	defer closeStore()

	engine, err := live.NewEngine(live.Options{
		TableID: cfg.TableID,
		Config:  table,
		Store:   st,
		Tick:    time.Duration(cfg.TickMS) * time.Millisecond,
		Faucet:  cfg.FaucetBalance,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}
	wsSrv := ws.NewServer(engine, log.Logger)
	engine.SetSink(wsSrv)

	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine stopped")
		}
	}()
	if cfg.Bots > 0 {
		names := live.StartBots(ctx, engine, cfg.Bots, []byte(cfg.BotSeed), log.Logger)
		log.Info().Strs("bots", names).Msg("bots seated")
	}

	r := httptransport.NewRouter(engine, wsSrv, st, cfg.AdminAPIKey)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("table", cfg.TableID).
		Str("game", string(table.GameKind)).
		Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func openStore(ctx context.Context, cfg config.LiveConfig) (accounts.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info().Msg("no POSTGRES_DSN set, balances held in memory")
		return accounts.NewMemStore(), func() {}, nil
	}
	st, err := accounts.NewPGStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, st.Close, nil
}
