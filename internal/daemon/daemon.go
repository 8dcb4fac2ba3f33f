// Package daemon runs the HTTP API, the transcription worker, the config
// watcher and the control socket as one process.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/sttbridge/internal/bus"
	"github.com/leonardotrapani/sttbridge/internal/config"
	"github.com/leonardotrapani/sttbridge/internal/metrics"
	"github.com/leonardotrapani/sttbridge/internal/pipeline"
	"github.com/leonardotrapani/sttbridge/internal/queue"
	"github.com/leonardotrapani/sttbridge/internal/server"
	"github.com/leonardotrapani/sttbridge/internal/transcriber"
)

// EngineFactory builds a transcription engine from configuration.
type EngineFactory func(config transcriber.Config, logger *slog.Logger) (transcriber.Engine, error)

type Options struct {
	ConfigPath string
	Bus        *bus.Bus
	Version    string
	LogOutput  io.Writer     // defaults to os.Stderr
	NewEngine  EngineFactory // defaults to transcriber.New
}

type Daemon struct {
	opts   Options
	logger *slog.Logger

	controller *pipeline.Controller
	worker     *pipeline.Worker

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	addr  string
	ready chan struct{}
}

func New(opts Options) *Daemon {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.NewEngine == nil {
		opts.NewEngine = transcriber.New
	}
	return &Daemon{
		opts:  opts,
		ready: make(chan struct{}),
	}
}

// Ready is closed once the HTTP API and the control socket accept connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Addr returns the bound HTTP address once Ready is closed.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

// Run blocks until ctx is done, a signal arrives, a quit command is
// received or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	b := d.opts.Bus
	if b == nil {
		var err error
		if b, err = bus.Default(); err != nil {
			return err
		}
	}
	if err := b.CheckExisting(); err != nil {
		return err
	}

	bootstrap := slog.New(slog.NewTextHandler(d.opts.LogOutput, nil))
	mgr, err := config.NewManager(d.opts.ConfigPath, bootstrap)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.GetConfig()
	d.logger = NewLogger(cfg, d.opts.LogOutput)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	engine, err := d.opts.NewEngine(cfg.ToTranscriberConfig(), d.logger)
	if err != nil {
		return fmt.Errorf("failed to create %s engine: %w", cfg.Transcription.Engine, err)
	}

	q := queue.New(cfg.Queue.Capacity)
	d.controller = pipeline.NewController(q, m, d.logger)
	d.worker = pipeline.NewWorker(d.controller, engine, workerConfig(cfg), m, d.logger)
	d.controller.SetOnline(cfg.Server.StartOnline)

	srv := server.New(server.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, d.controller, m, reg, d.logger)

	mgr.OnChange(d.applyConfig)

	httpLn, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address, err)
	}

	ctlLn, err := b.Listen()
	if err != nil {
		httpLn.Close()
		return fmt.Errorf("failed to open control socket: %w", err)
	}

	if err := b.CreatePidFile(); err != nil {
		httpLn.Close()
		ctlLn.Close()
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer b.RemovePidFile()

	d.ctx, d.cancel = context.WithCancel(ctx)
	defer d.cancel()

	g, gctx := errgroup.WithContext(d.ctx)

	g.Go(func() error {
		return d.worker.Run(gctx)
	})
	g.Go(func() error {
		return srv.Serve(gctx, httpLn)
	})
	g.Go(func() error {
		return d.serveControl(gctx, ctlLn)
	})
	g.Go(func() error {
		if err := mgr.StartWatching(gctx); err != nil {
			d.logger.Warn("config hot reload disabled", slog.Any("error", err))
			return nil
		}
		<-gctx.Done()
		mgr.Stop()
		return nil
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			d.logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
			d.cancel()
		case <-gctx.Done():
		}
		return nil
	})

	d.mu.Lock()
	d.addr = httpLn.Addr().String()
	d.mu.Unlock()
	close(d.ready)

	d.logger.Info("daemon started",
		slog.String("address", httpLn.Addr().String()),
		slog.String("engine", engine.Name()),
		slog.Bool("online", cfg.Server.StartOnline),
		slog.Int("queue_capacity", cfg.Queue.Capacity),
		slog.String("config", mgr.Path()),
		slog.String("socket", b.SockPath()),
		slog.String("pid_file", b.PidPath()),
	)

	err = g.Wait()
	d.logger.Info("daemon stopped")
	return err
}

func workerConfig(c *config.Config) pipeline.WorkerConfig {
	return pipeline.WorkerConfig{
		IdleSleep:         c.Worker.IdleSleep,
		ErrorBackoff:      c.Worker.ErrorBackoff,
		TranscribeTimeout: c.Worker.TranscribeTimeout,
	}
}

// applyConfig hot-swaps the engine and worker timings. Server and queue
// settings only take effect after a restart.
func (d *Daemon) applyConfig(prev, next *config.Config) {
	if prev.Server != next.Server || prev.Queue != next.Queue || prev.Metrics != next.Metrics {
		d.logger.Warn("server, queue or metrics settings changed, restart to apply")
	}
	if prev.Logging != next.Logging {
		d.logger.Warn("logging settings changed, restart to apply")
	}

	if prev.Transcription == next.Transcription {
		if prev.Worker != next.Worker {
			d.worker.SetConfig(workerConfig(next))
		}
		return
	}

	engine, err := d.opts.NewEngine(next.ToTranscriberConfig(), d.logger)
	if err != nil {
		d.logger.Error("failed to rebuild engine, keeping the current one", slog.Any("error", err))
		return
	}
	d.worker.Update(engine, workerConfig(next))
}

func (d *Daemon) serveControl(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("control socket accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.logger.Warn("control client read error", slog.Any("error", err))
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch cmd := line[0]; cmd {
	case bus.CmdStatus:
		s := d.controller.Snapshot()
		fmt.Fprintf(c, "STATUS online=%t queue=%d/%d\n", s.Online, s.QueueLength, s.QueueCapacity)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s version=%s\n", bus.ProtoVer, d.opts.Version)
	case bus.CmdOnline:
		d.controller.SetOnline(true)
		fmt.Fprint(c, "OK online\n")
	case bus.CmdOffline:
		d.controller.SetOnline(false)
		fmt.Fprint(c, "OK offline\n")
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		d.logger.Warn("unknown control command", slog.String("command", string(cmd)))
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}
