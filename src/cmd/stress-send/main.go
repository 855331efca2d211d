package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

// tally counts the replies of one stress run.
type tally struct {
	ok, busy, missing, failed int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-send",
		Short:         "Forward many concurrent commands to the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, ok := singleinstance.ParseCommand(opts.command)
			if !ok {
				return fmt.Errorf("unknown command %q", opts.command)
			}
			t := runWithOptions(*opts, command, singleinstance.NewClient())
			printTally(cmd.OutOrStdout(), opts.n, t)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.command, "command", "status", "capture, toggle or status")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, command singleinstance.Command, client singleinstance.Client) tally {
	var wg sync.WaitGroup
	var t tally

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delivered, _, err := client.Send(ctx, command)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&t.busy, 1)
			case err != nil:
				atomic.AddInt32(&t.failed, 1)
			case !delivered:
				atomic.AddInt32(&t.missing, 1)
			default:
				atomic.AddInt32(&t.ok, 1)
			}
		}()
	}
	wg.Wait()
	return t
}

func printTally(out io.Writer, n int, t tally) {
	fmt.Fprintf(out, "launched=%d ok=%d busy=%d no-resident=%d err=%d\n", n, t.ok, t.busy, t.missing, t.failed)
}
