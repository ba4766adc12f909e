package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okdaichi/sdnctl/internal/config"
	"github.com/okdaichi/sdnctl/internal/controller"
	"github.com/okdaichi/sdnctl/internal/eventlog"
	"github.com/okdaichi/sdnctl/internal/topofile"
	"github.com/okdaichi/sdnctl/internal/wire"
)

const defaultControllerConfigFile = "config.controller.yaml"

// RunController starts the Controller process: `<program> <port> <config_file>`.
func RunController(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: controller <port> <config_file>")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[0], err)
	}
	topoFile := args[1]

	runtimeCfg, err := config.LoadController(optionalConfigFile(defaultControllerConfigFile))
	if err != nil {
		return fmt.Errorf("failed to load runtime config: %w", err)
	}

	f, err := os.Open(topoFile)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	tmpl, err := topofile.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		return fmt.Errorf("failed to bind controller socket: %w", err)
	}
	defer conn.Close()

	logPath := filepath.Join(runtimeCfg.LogDir, "Controller.log")
	logWriter, err := eventlog.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", logPath, err)
	}
	defer logWriter.Close()

	logger := slog.With("component", "controller")

	ctrl := controller.New(tmpl, conn, logWriter, logger, runtimeCfg.UpdateDelay, runtimeCfg.Timeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctrl.RunLivenessSweeper(ctx)

	var metricsServer *http.Server
	if runtimeCfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if ctrl.Healthy() {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		})
		metricsServer = &http.Server{Addr: runtimeCfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	logger.Info("controller started", "port", port, "switches", tmpl.N)
	recvLoopController(ctx, conn, ctrl, logger)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down metrics server", "error", err)
		}
	}

	logger.Info("controller stopped")
	return nil
}

func recvLoopController(ctx context.Context, conn *net.UDPConn, ctrl *controller.Controller, logger *slog.Logger) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Warn("read error", "error", err)
				continue
			}
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		ctrl.HandleDatagram(data, addr)
	}
}

// optionalConfigFile returns filename if it exists, else "" so the loader
// falls back to defaults instead of erroring on a merely-absent file.
func optionalConfigFile(filename string) string {
	if _, err := os.Stat(filename); err != nil {
		return ""
	}
	return filename
}
