package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pengolodh/pengolodh/internal/cli"
	"github.com/spf13/cobra"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cli.NewRootCmd(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, err)

	var gv *cli.GrammarViolation
	if errors.As(err, &gv) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", helpHintTarget(root, gv))
		return exitUsage
	}
	return exitFailure
}

func helpHintTarget(root *cobra.Command, gv *cli.GrammarViolation) string {
	if gv != nil && gv.CommandPath != "" {
		return gv.CommandPath
	}
	return root.CommandPath()
}
