package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	persistlog "bombarena.dev/internal/persistence/log"
	"bombarena.dev/internal/persistence/snapshot"
	"bombarena.dev/internal/sim/lobby"
	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/transport/ws"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var (
		addr       = flag.String("addr", envString("BOMBARENA_ADDR", ":8080"), "http listen address")
		dataDir    = flag.String("data", envString("BOMBARENA_DATA", "./data"), "runtime data directory")
		configDir  = flag.String("configs", envString("BOMBARENA_CONFIGS", "./configs"), "config directory")
		tuningPath = flag.String("tuning", envString("BOMBARENA_TUNING", ""), "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", envBool("BOMBARENA_DISABLE_DB", false), "disable the match-history index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	tickLog := persistlog.NewTickLogger(*dataDir)
	defer tickLog.Close()

	// Final board of every finished match, for post-mortems.
	snaps := snapshot.NewRecorder(filepath.Join(*dataDir, "matches"), tune, logger)
	defer snaps.Close()

	rt := &runtime{
		tune:    tune,
		idx:     idx,
		tickLog: tickLog,
		log:     logger,
	}
	regCfg := lobby.Config{
		Tuning:     tune,
		Logger:     logger,
		TickLogger: multiTickLogger{a: tickLog, b: idx},
		Results:    multiResultRecorder{a: snaps, b: idx},
	}
	rt.reg = lobby.NewRegistry(regCfg)
	defer rt.reg.Close()
	rt.ws = ws.NewServer(rt.reg, tune, logger)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := rt.reg.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("reaper stopped: %v", err)
		}
	}()

	mux := rt.routes(
		envBool("BOMBARENA_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		envBool("BOMBARENA_ENABLE_PPROF_HTTP", false),
	)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s tick_rate_hz=%d max_players=%d", *addr, tune.TickRateHz, tune.MaxPlayers)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type runtime struct {
	tune    tuning.Tuning
	reg     *lobby.Registry
	ws      *ws.Server
	idx     runtimeIndex
	tickLog *persistlog.TickLogger
	log     *log.Logger
}

func (rt *runtime) routes(enableAdmin, enablePprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rt.metricsHandler)

	if enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/rooms", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				Rooms     []session.Info `json:"rooms"`
				Connected int64          `json:"connected"`
			}{
				Rooms:     rt.reg.List(),
				Connected: rt.ws.Connected(),
			})
		})
	} else {
		rt.log.Printf("admin endpoints disabled (BOMBARENA_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		rt.log.Printf("pprof endpoints disabled (BOMBARENA_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", rt.ws.Handler())
	return mux
}

func (rt *runtime) metricsHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	rooms := rt.reg.List()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP bombarena_rooms Current number of live rooms.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_rooms gauge\n")
	fmt.Fprintf(rw, "bombarena_rooms %d\n", len(rooms))

	fmt.Fprintf(rw, "# HELP bombarena_clients Current number of connected websocket clients.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_clients gauge\n")
	fmt.Fprintf(rw, "bombarena_clients %d\n", rt.ws.Connected())

	fmt.Fprintf(rw, "# HELP bombarena_room_tick Current room tick.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_room_tick gauge\n")
	for _, info := range rooms {
		fmt.Fprintf(rw, "bombarena_room_tick{room=%q,status=%q} %d\n", info.ID, info.Status, info.Tick)
	}

	fmt.Fprintf(rw, "# HELP bombarena_room_players Players in the room by state.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_room_players gauge\n")
	for _, info := range rooms {
		fmt.Fprintf(rw, "bombarena_room_players{room=%q,state=%q} %d\n", info.ID, "joined", info.Players)
		fmt.Fprintf(rw, "bombarena_room_players{room=%q,state=%q} %d\n", info.ID, "alive", info.Alive)
		fmt.Fprintf(rw, "bombarena_room_players{room=%q,state=%q} %d\n", info.ID, "connected", info.Connected)
	}

	fmt.Fprintf(rw, "# HELP bombarena_room_entities Live entity counts.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_room_entities gauge\n")
	fmt.Fprintf(rw, "# HELP bombarena_room_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_room_step_ms gauge\n")
	for _, info := range rooms {
		s, ok := rt.reg.Get(info.ID)
		if !ok {
			continue
		}
		m := s.Metrics()
		fmt.Fprintf(rw, "bombarena_room_entities{room=%q,kind=%q} %d\n", info.ID, "bomb", m.Bombs)
		fmt.Fprintf(rw, "bombarena_room_entities{room=%q,kind=%q} %d\n", info.ID, "explosion", m.Explosions)
		fmt.Fprintf(rw, "bombarena_room_entities{room=%q,kind=%q} %d\n", info.ID, "item", m.Items)
		fmt.Fprintf(rw, "bombarena_room_step_ms{room=%q} %.3f\n", info.ID, m.StepMS)
	}

	if rt.tickLog != nil {
		fmt.Fprintf(rw, "# HELP bombarena_ticklog_dropped_total Tick log entries dropped because the writer queue was full.\n")
		fmt.Fprintf(rw, "# TYPE bombarena_ticklog_dropped_total counter\n")
		fmt.Fprintf(rw, "bombarena_ticklog_dropped_total %d\n", rt.tickLog.Dropped())
		fmt.Fprintf(rw, "# HELP bombarena_ticklog_failed_total Tick log entries the writer failed to persist.\n")
		fmt.Fprintf(rw, "# TYPE bombarena_ticklog_failed_total counter\n")
		fmt.Fprintf(rw, "bombarena_ticklog_failed_total %d\n", rt.tickLog.Failed())
	}

	writeIndexMetrics(rw, rt.idx)
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP bombarena_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "bombarena_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP bombarena_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "bombarena_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP bombarena_index_dropped_total Records dropped because the index queue was full.\n")
	fmt.Fprintf(rw, "# TYPE bombarena_index_dropped_total counter\n")
	fmt.Fprintf(rw, "bombarena_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "bombarena_index_dropped_total{kind=%q} %d\n", "result", s.DropResultTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger struct {
	a session.TickLogger
	b session.TickLogger
}

func (m multiTickLogger) WriteTick(entry session.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiResultRecorder struct {
	a session.ResultRecorder
	b session.ResultRecorder
}

func (m multiResultRecorder) RecordResult(res session.MatchResult) {
	if m.a != nil {
		m.a.RecordResult(res)
	}
	if m.b != nil {
		m.b.RecordResult(res)
	}
}
