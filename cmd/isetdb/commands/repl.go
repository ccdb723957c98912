package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/isetdb/internal/command"
	"github.com/Sumatoshi-tech/isetdb/internal/config"
	"github.com/Sumatoshi-tech/isetdb/internal/observability"
	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

const (
	replPrompt = "isetdb> "

	// metricsReadTimeout bounds request header reads on the metrics listener.
	metricsReadTimeout = 5 * time.Second
)

// Quit words recognized by the REPL in addition to EOF.
var quitWords = map[string]bool{
	"quit": true,
	"exit": true,
}

// NewReplCommand creates the interactive REPL command.
func NewReplCommand() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive interval-set session",
		Long: `Start an interactive session reading commands from stdin.

Supported commands:
  IADD key low high member [low high member ...]
  IUPSERT key low high member [low high member ...]
  IREM key member
  IEXISTS key member
  IOVERLAP key low high
  ICARD key
  DEL key
  KEYS
  HIBERNATE key`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			providers, err := initObservability(cobraCmd.Context(), cfg, debug)
			if err != nil {
				return err
			}

			defer shutdownObservability(providers)

			meter := providers.Meter

			if metricsAddr == "" {
				metricsAddr = cfg.Observability.MetricsAddr
			}

			// A Prometheus endpoint carries its own meter provider; command
			// metrics must register there to be scrapeable.
			if metricsAddr != "" {
				promMeter, stopMetrics, serveErr := serveMetrics(metricsAddr, providers)
				if serveErr != nil {
					return serveErr
				}

				defer stopMetrics()

				meter = promMeter
			}

			metrics, err := observability.NewCommandMetrics(meter)
			if err != nil {
				return err
			}

			db := store.New(store.WithHibernationThreshold(cfg.Store.HibernationThreshold))
			dispatcher := command.NewDispatcher(db,
				command.WithLogger(providers.Logger),
				command.WithMetrics(metrics),
				command.WithTracer(providers.Tracer),
			)

			return runRepl(cobraCmd.Context(), dispatcher, cobraCmd.InOrStdin(), cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: .isetdb.yaml in cwd or $HOME)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// runRepl reads one command per line until EOF, a quit word, or context
// cancellation.
func runRepl(ctx context.Context, dispatcher *command.Dispatcher, in io.Reader, out io.Writer) error {
	prompt := color.New(color.FgCyan)
	errline := color.New(color.FgRed)

	scanner := bufio.NewScanner(in)

	for {
		if ctx.Err() != nil {
			return nil
		}

		prompt.Fprint(out, replPrompt)

		if !scanner.Scan() {
			fmt.Fprintln(out)

			return scanner.Err()
		}

		argv := strings.Fields(scanner.Text())
		if len(argv) == 0 {
			continue
		}

		if len(argv) == 1 && quitWords[strings.ToLower(argv[0])] {
			return nil
		}

		reply, err := dispatcher.Execute(ctx, argv)
		if err != nil {
			errline.Fprintf(out, "(error) %v\n", err)

			continue
		}

		fmt.Fprintln(out, renderReply(reply))
	}
}

// renderReply formats a command reply for the terminal. Row replies become a
// table; everything else uses the reply's own representation.
func renderReply(reply command.Reply) string {
	rows, ok := reply.(command.RowsReply)
	if !ok || len(rows) == 0 {
		return reply.String()
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"LOW", "HIGH", "MEMBER"})

	for _, entry := range rows {
		tbl.AppendRow(table.Row{entry.Low, entry.High, entry.Member})
	}

	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d matched", len(rows))})

	return tbl.Render()
}

// serveMetrics starts a Prometheus endpoint in the background. It returns
// the meter to register instruments on and a function stopping the listener.
func serveMetrics(addr string, providers *observability.Providers) (metric.Meter, func(), error) {
	handler, provider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			providers.Logger.Warn("metrics listener failed", "error", serveErr)
		}
	}()

	return provider.Meter("isetdb"), func() {
		_ = server.Close()
	}, nil
}
