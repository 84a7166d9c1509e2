package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragchat/internal/tui"
	"ragchat/internal/web"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page over HTTP",
		Long: `Synchronize the corpus and serve the chat page.

Examples:
  ragchat serve
  ragchat serve --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, addr string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	a.watch(ctx)
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	return web.ListenAndServe(ctx, addr, web.NewServer(a.svc, a.overview, a.log), a.log)
}

func newChatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// Log lines would corrupt the full-screen UI.
			a, err := newApp(ctx, opts, io.Discard)
			if err != nil {
				return err
			}
			defer a.Close()

			a.watch(ctx)
			_, err = tea.NewProgram(tui.New(ctx, a.svc, a.overview), tea.WithAltScreen()).Run()
			return err
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the corpus with the vector store and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			r := a.report
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "corpus:   %s (%d lines)\n", a.cfg.Corpus.Path, r.Lines)
			fmt.Fprintf(out, "existing: %d\n", r.Existing)
			fmt.Fprintf(out, "inserted: %d\n", len(r.Inserted))
			if opts.verbose && len(r.Inserted) > 0 {
				fmt.Fprintf(out, "ids:      %s\n", strings.Join(r.Inserted, ", "))
			}
			return nil
		},
	}
}
