package main

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A metric with a constant '1' value labeled by version, and goversion.",
		},
		[]string{"version", "goversion"},
	)
	depositOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_operations",
			Help: "Incremented for each deposit, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	withdrawOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdraw_operations",
			Help: "Incremented for each withdrawal, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	operationDur = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "operation_duration",
			Help: "Summary of how long a sequenced operation takes to complete, in microseconds.",
		},
		[]string{"operation"},
	)
	requestCtr = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests",
			Help: "Incremented for each API request received.",
		},
		[]string{"path", "status"},
	)
	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pool_size",
			Help: "Number of commitments in the tree.",
		},
	)
	rootHistoryLen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "root_history_length",
			Help: "Number of roots that withdrawals are accepted against.",
		},
	)
)

func metrics(addr string, log zerolog.Logger) {
	buildInfo.WithLabelValues(Version, GoVersion).Set(1)
	prometheus.MustRegister(buildInfo)
	prometheus.MustRegister(depositOps)
	prometheus.MustRegister(withdrawOps)
	prometheus.MustRegister(operationDur)
	prometheus.MustRegister(requestCtr)
	prometheus.MustRegister(poolSize)
	prometheus.MustRegister(rootHistoryLen)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/" {
			fmt.Fprintln(rw, "Hi, I'm a mixer metrics and debugging server!")
		} else {
			rw.WriteHeader(404)
			fmt.Fprintln(rw, "404 not found")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/debug/version", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "Version: %s, GoVersion: %s", Version, GoVersion)
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	log.Info().Str("addr", addr).Msg("Starting metrics server.")
	log.Fatal().Err(srv.ListenAndServe()).Msg("Metrics server stopped.")
}
