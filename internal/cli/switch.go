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
	"github.com/okdaichi/sdnctl/internal/eventlog"
	"github.com/okdaichi/sdnctl/internal/switchd"
	"github.com/okdaichi/sdnctl/internal/wire"
)

const defaultSwitchConfigFile = "config.switch.yaml"

// RunSwitch starts a Switch process:
// `<program> <switch_id> <controller_host> <controller_port> [-f <neighbor_id>]`.
func RunSwitch(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: switch <switch_id> <controller_host> <controller_port> [-f <neighbor_id>]")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid switch id %q: %w", args[0], err)
	}
	host := args[1]
	port, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid controller port %q: %w", args[2], err)
	}

	failedNeighbor := switchd.NoFailedNeighbor
	if len(args) >= 5 && args[3] == "-f" {
		failedNeighbor, err = strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("invalid -f neighbor id %q: %w", args[4], err)
		}
	}

	runtimeCfg, err := config.LoadSwitch(optionalConfigFile(defaultSwitchConfigFile))
	if err != nil {
		return fmt.Errorf("failed to load runtime config: %w", err)
	}

	controllerAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("failed to resolve controller address: %w", err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		return fmt.Errorf("failed to bind switch socket: %w", err)
	}
	defer conn.Close()
	localPort := conn.LocalAddr().(*net.UDPAddr).Port

	logPath := filepath.Join(runtimeCfg.LogDir, fmt.Sprintf("switch%d.log", id))
	logWriter, err := eventlog.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", logPath, err)
	}
	defer logWriter.Close()

	logger := slog.With("component", "switch", "switch_id", id)

	sw := switchd.New(id, controllerAddr, conn, failedNeighbor, logWriter, logger, runtimeCfg.UpdateDelay, runtimeCfg.Timeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sw.Bootstrap(ctx, conn, localPort); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	var metricsServer *http.Server
	if runtimeCfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: runtimeCfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server error", "error", err)
			}
		}()
	}

	runPeriodicTasks(ctx, sw, runtimeCfg.UpdateDelay)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	logger.Info("switch started", "controller", controllerAddr.String())
	recvLoopSwitch(ctx, conn, sw, logger)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down metrics server", "error", err)
		}
	}

	logger.Info("switch stopped")
	return nil
}

func runPeriodicTasks(ctx context.Context, sw *switchd.Switch, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sw.PeriodicTasks()
			}
		}
	}()
}

func recvLoopSwitch(ctx context.Context, conn *net.UDPConn, sw *switchd.Switch, logger *slog.Logger) {
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
		sw.HandleDatagram(data, addr)
	}
}
