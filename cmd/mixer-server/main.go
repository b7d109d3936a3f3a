// Command mixer-server is the main server process that answers all client
// requests and sequences deposits and withdrawals into the pool.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/Bren2010/mixer/db"
	"github.com/Bren2010/mixer/db/memory"
	"github.com/Bren2010/mixer/pool"
)

var (
	configFile = flag.StringP("config", "c", "", "Location of config file.")
	logLevel   = flag.String("log-level", "", "Overrides the log level set in the config file.")
)

// newLogger returns a logger writing to w at the given level. An empty level
// means info.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Logger{}, err
		}
		lvl = parsed
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// openPool opens the database named in the config and initializes the pool.
// Genesis allocations are only made when the database is new. The returned
// function closes the database.
func openPool(config *Config, log zerolog.Logger) (*pool.Pool, func() error, error) {
	var (
		store  db.PoolStore
		closer = func() error { return nil }
	)
	if config.DatabaseFile == "" {
		log.Warn().Msg("No database configured, state will not survive a restart.")
		store = memory.NewPoolStore()
	} else {
		ldb, closeDB, err := db.NewLDBPoolStore(config.DatabaseFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store, closer = ldb, closeDB
	}

	p, err := initPool(config, store, log)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return p, closer, nil
}

func initPool(config *Config, store db.PoolStore, log zerolog.Logger) (*pool.Pool, error) {
	pc := config.PoolConfig
	balances, err := store.ListBalances()
	if err != nil {
		return nil, err
	}
	fresh := len(balances) == 0

	opts := append(pc.options(), pool.WithLogger(log))
	p, err := pool.New(pc.suite, store, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pool: %w", err)
	}
	if fresh {
		for account, amount := range pc.Genesis {
			if err := p.Fund(account, amount); err != nil {
				return nil, fmt.Errorf("failed to fund account %v: %w", account, err)
			}
		}
	}
	return p, nil
}

func main() {
	flag.Parse()

	// Load config from disk.
	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "No config file provided, see --help.")
		os.Exit(1)
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config file: %v\n", err)
		os.Exit(1)
	}
	level := config.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	log, err := newLogger(os.Stderr, level, config.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	if config.MetricsAddr != "" {
		go metrics(config.MetricsAddr, log)
	}

	// Start the sequencer thread.
	p, closer, err := openPool(config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open pool.")
	}
	ch := make(chan SequenceRequest)
	go sequencer(p, ch, log)

	// Setup the API server.
	h := &Handler{config: config.APIConfig, pool: p, ch: ch, log: log}
	srv := &http.Server{
		Addr:      config.ServerAddr,
		Handler:   NewRouter(h),
		TLSConfig: config.tlsConfig,

		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Info().Str("addr", config.ServerAddr).Str("suite", p.Suite().Name()).Msg("Starting API server.")
	errCh := make(chan error, 1)
	go func() {
		if config.TLSConfig == nil {
			errCh <- srv.ListenAndServe()
		} else {
			errCh <- srv.ListenAndServeTLS("", "")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("API server stopped.")
		code = 1
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down.")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down API server.")
			code = 1
		}
		cancel()
	}

	// Handlers wait on the sequencer, so nothing touches the pool once the
	// server is down.
	if err := closer(); err != nil {
		log.Error().Err(err).Msg("Failed to close database.")
		code = 1
	}
	os.Exit(code)
}
