package main

import (
	"log/slog"
	"os"

	"github.com/qrdecryptor/qrdecryptor/cmd/qrdecryptor/commands"
)

func main() {
	// Results go to stdout, so logs use stderr. The level is set from config
	// once flags are parsed.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: commands.LogLevel,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
