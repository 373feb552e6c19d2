package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/legal-agent/internal/config"
	"github.com/thywilljoshua/legal-agent/internal/legal"
)

// app carries state shared by every subcommand once the root has loaded
// the configuration.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(exitCode(err))
	}
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "legalagent",
		Short:         "Summarize, section and compliance-check legislation PDFs with an LLM",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))
			slog.SetDefault(a.log)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "optional YAML config file (environment variables take precedence)")

	root.AddCommand(analyzeCmd(a))
	root.AddCommand(extractCmd(a))
	root.AddCommand(serveCmd(a, stderr))
	return root
}

// Exit codes by error kind; anything unclassified exits 1.
var exitCodes = map[legal.Kind]int{
	legal.KindExtraction: 3,
	legal.KindConfig:     4,
	legal.KindAuth:       5,
	legal.KindRequest:    6,
	legal.KindTimeout:    7,
	legal.KindParse:      8,
	legal.KindCancelled:  9,
}

func exitCode(err error) int {
	if code, ok := exitCodes[legal.KindOf(err)]; ok {
		return code
	}
	if errors.Is(err, context.Canceled) {
		return exitCodes[legal.KindCancelled]
	}
	return 1
}

// describe renders err as "<Kind>: <message>".
func describe(err error) string {
	var le *legal.Error
	if errors.As(err, &le) {
		return le.Error()
	}
	return "Error: " + err.Error()
}
