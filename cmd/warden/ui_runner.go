package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"warden/internal/dispatch"
	"warden/internal/driver"
	"warden/internal/ui"
)

type scanOutcome struct {
	result *driver.Result
	err    error
}

func runScanWithUI(ctx context.Context, title string, units []string, d *dispatch.Dispatcher, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan scanOutcome, 1)

	go func() {
		opts.Progress = driver.Sinks{opts.Progress, driver.ChannelSink{Ch: events}}
		res, err := driver.ScanUnits(ctx, units, d, opts)
		outcomeCh <- scanOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
