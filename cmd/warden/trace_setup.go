package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"warden/internal/config"
	"warden/internal/driver"
	"warden/internal/trace"
)

var (
	activeTracer = trace.Nop
	traceCleanup = func() {}
	// scanCounter feeds the heartbeat with unit progress.
	scanCounter  = &driver.Counter{}
)

func addTraceFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("trace", "", "write trace events to file (\"-\" for stderr, *.ndjson for NDJSON)")
	cmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	cmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	cmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in the ring buffer")
	cmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 = off)")
}

// setupTracing inspects trace-related flags, falling back to the [trace]
// section of the configuration, and attaches the tracer to the command
// context.
func setupTracing(cmd *cobra.Command, cfg *config.Config) error {
	root := cmd.Root()
	flags := root.PersistentFlags()

	// Read trace configuration from flags
	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	// файл конфигурации действует, пока флаг не задан явно
	if !flags.Changed("trace") && cfg.Trace.Output != "" {
		traceOutput = cfg.Trace.Output
	}
	if !flags.Changed("trace-level") && cfg.Trace.Level != "" {
		levelStr = cfg.Trace.Level
	}
	if !flags.Changed("trace-mode") && cfg.Trace.Mode != "" {
		modeStr = cfg.Trace.Mode
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone means "phase"
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	activeTracer = tracer

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval, scanCounter.String)
	}

	traceCleanup = func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
		}
	}
	return nil
}

func closeTracing() {
	traceCleanup()
	traceCleanup = func() {}
}

// dumpTraceOnPanic writes the ring buffer to stderr before letting a panic
// continue, so the last events before the crash are not lost.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring := trace.RingOf(activeTracer); ring != nil {
		fmt.Fprintf(os.Stderr, "warden: panic at %s, last trace events:\n", time.Now().Format(time.RFC3339))
		if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
		}
	}
	closeTracing()
	panic(r)
}
