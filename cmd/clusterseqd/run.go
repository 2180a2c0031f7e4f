// File: cmd/clusterseqd/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/cluster"
	"github.com/momentics/clusterseq/control"
	"github.com/momentics/clusterseq/core/concurrency"
	"github.com/momentics/clusterseq/core/protocol"
)

func newRunCommand() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sequencer node until shutdown or abort",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML node config")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runNode(configPath string, debug bool) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("role", "sequencer").Logger()
	if debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg := control.DefaultConfig()
	if configPath != "" {
		loaded, err := control.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var toggle api.Counter
	if cfg.ToggleFile != "" {
		mapped, err := control.OpenMappedToggle(cfg.ToggleFile)
		if err != nil {
			return fmt.Errorf("open control toggle: %w", err)
		}
		defer mapped.Close()
		toggle = mapped
	} else {
		toggle = concurrency.NewAtomicCounter(int64(control.ToggleNeutral))
	}

	logBuffer := cluster.NewLogBuffer(cfg.LogCapacity)
	egress := cluster.NewChannelEgress(cfg.EgressCapacity)

	seq, err := cluster.NewSequencer(cfg, cluster.Deps{
		Appender:      logBuffer,
		Egress:        egress,
		ControlToggle: toggle,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	runner := concurrency.NewAgentRunner(seq, concurrency.NewBackoffIdleStrategy(cfg.MaxIdleBackoff))
	go runner.Run()
	go runLocalServices(seq, logBuffer, cfg.ServiceCount, logger)

	metrics := control.NewMetricsRegistry()
	metrics.RegisterProbe("message_index", func() any { return seq.MessageIndex().Get() })
	metrics.RegisterProbe("state", func() any { return seq.State().String() })

	operator := control.NewClusterControl(toggle)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Int("services", cfg.ServiceCount).Msg("node started")

	for {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("requesting abort")
			operator.Request(control.ToggleAbort)
		case <-seq.Barrier().Signalled():
			runner.Stop()
			if err := runner.Err(); err != nil {
				return err
			}
			logger.Info().Interface("metrics", metrics.Snapshot()).Msg("node stopped")
			return nil
		case <-runner.Done():
			if err := runner.Err(); err != nil {
				return err
			}
			return nil
		}
	}
}

// runLocalServices models the downstream consensus services of a
// single-process deployment: it acks READY for each service, then
// drains the log and acks every action request it sees.
func runLocalServices(seq *cluster.Sequencer, log *cluster.LogBuffer, serviceCount int, logger zerolog.Logger) {
	acks := seq.ServiceAcks()
	for id := 0; id < serviceCount; id++ {
		for !acks.Offer(cluster.ServiceAck{ServiceID: int64(id), Action: api.ActionReady}) {
		}
	}

	for {
		select {
		case <-seq.Barrier().Signalled():
			return
		default:
		}
		n := log.Read(func(record *protocol.LogRecord) {
			logger.Debug().Stringer("record", record).Msg("log")
			if record.Kind != protocol.RecordActionRequest {
				return
			}
			for id := 0; id < serviceCount; id++ {
				ack := cluster.ServiceAck{ServiceID: int64(id), Action: record.Action()}
				for !acks.Offer(ack) {
				}
			}
		}, 64)
		if n == 0 {
			select {
			case <-seq.Barrier().Signalled():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
}
