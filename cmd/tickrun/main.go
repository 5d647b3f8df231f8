// Command tickrun runs a demo scheduler: a pool of counter tasks driven by
// the ticker driver, with the inspector and metrics wired up.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tickrun/tickrun/pkg/config"
	"github.com/tickrun/tickrun/pkg/core"
	"github.com/tickrun/tickrun/pkg/inspector"
	obsprom "github.com/tickrun/tickrun/pkg/observability/prometheus"
	"github.com/tickrun/tickrun/pkg/observability/tracing"
	"github.com/tickrun/tickrun/pkg/step"
)

func main() {
	configPath := flag.String("config", "", "path to YAML or JSON config file")
	taskCount := flag.Int("tasks", 3, "number of pool tasks")
	stepCount := flag.Int("steps", 100, "steps per task")
	flag.Parse()

	logger := core.NewDefaultLogger()

	cfg := config.Default()
	if *configPath != "" {
		if err := config.LoadWithEnv(*configPath, "TICKRUN", cfg); err != nil {
			logger.Errorf("failed to load config: %v", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Observability wiring
	observers := []core.Observer{obsprom.NewMetricsObserver(nil)}

	if cfg.Tracing.Enabled {
		tp, err := tracing.Setup(ctx)
		if err != nil {
			logger.Errorf("failed to set up tracing: %v", err)
			os.Exit(1)
		}
		defer tp.Shutdown(context.Background())
		observers = append(observers, tracing.NewTracingObserver(tp))
	}

	registry := core.NewRegistry()

	var hub *inspector.StreamHub
	if cfg.Inspector.Enabled {
		insp := inspector.New(cfg.Inspector.Addr, registry, inspector.WithLogger(logger))
		if err := insp.Start(); err != nil {
			logger.Errorf("failed to start inspector: %v", err)
			os.Exit(1)
		}
		defer insp.Shutdown(context.Background())

		if cfg.Inspector.StreamAddr != "" {
			hub = inspector.NewStreamHub(logger)
			if err := hub.Serve(cfg.Inspector.StreamAddr); err != nil {
				logger.Errorf("failed to start event stream: %v", err)
				os.Exit(1)
			}
			defer hub.Shutdown(context.Background())
			observers = append(observers, hub)
		}
	}

	driver := core.NewTickerDriver(ctx, cfg.Driver.TickInterval(), core.WithDriverLogger(logger))
	defer driver.Close()

	pool := core.NewPool(core.WithPoolLogger[int](logger))
	for i := 0; i < *taskCount; i++ {
		opts := []core.TaskOption[int]{
			core.WithLogger[int](logger),
			core.WithRegistry[int](registry),
		}
		for _, o := range observers {
			opts = append(opts, core.WithObserver[int](o))
		}
		task, err := core.NewTask(step.Counter(*stepCount), driver, false, opts...)
		if err != nil {
			logger.Errorf("failed to create task: %v", err)
			os.Exit(1)
		}
		if err := pool.Add(task); err != nil {
			logger.Errorf("failed to add task to pool: %v", err)
			os.Exit(1)
		}
	}

	done := make(chan struct{})
	pool.OnAllFinished(func() {
		obsprom.GetMetrics().RecordPoolCompleted()
		close(done)
	})

	if err := pool.StartAll(); err != nil {
		logger.Errorf("failed to start pool: %v", err)
		os.Exit(1)
	}
	logger.Infof("started pool %s with %d task(s)", pool.ID(), pool.Size())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
		logger.Info("all tasks finished")
	case sig := <-sigCh:
		logger.Infof("received %v, stopping pool", sig)
		pool.StopAll()
		<-done
	}
}
