package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"livescribe/internal/bootstrap"
	"livescribe/internal/logging"
	"livescribe/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "livescribe:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logFile, err := logging.DefaultFile()
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()
	services, err := bootstrap.Build(bridge, bridge, bootstrap.Options{
		LogFallback:    io.Discard,
		DefaultLogFile: logFile,
	})
	if err != nil {
		return err
	}
	defer services.Close()

	info := fmt.Sprintf("%s · %s · %s", services.Info.Engine, services.Info.Model, services.Info.Locale)
	program := tea.NewProgram(tui.NewModel(ctx, services.Screen, info), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	_, runErr := program.Run()
	bridge.Detach()
	if err := services.Screen.Destroy(); err != nil {
		services.Logger.Debug().Err(err).Msg("screen destroy")
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
