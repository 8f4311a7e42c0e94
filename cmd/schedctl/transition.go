package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/engine"
	"github.com/cuemby/pacemaker-scheduler/pkg/log"
	"github.com/cuemby/pacemaker-scheduler/pkg/metrics"
	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Run one scheduling pass and print the transition graph",
	Long: `transition parses a CIB configuration document and a live status
document, computes the transition graph for the given "now", and prints
the graph XML to stdout followed by a diagnostics summary on stderr.`,
	RunE: runTransition,
}

func init() {
	transitionCmd.Flags().String("cib", "", "Path to the CIB configuration_xml document (required)")
	transitionCmd.Flags().String("status", "", "Path to the live status_xml document (required)")
	transitionCmd.Flags().String("now", "", "Wall-clock time to schedule against, RFC3339 (default: current time)")
	transitionCmd.Flags().String("options", "", "Optional YAML file of cluster option overrides merged into the CIB before scheduling")
	transitionCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address after the pass (e.g. 127.0.0.1:9090)")

	_ = transitionCmd.MarkFlagRequired("cib")
	_ = transitionCmd.MarkFlagRequired("status")
}

func runTransition(cmd *cobra.Command, args []string) error {
	cibPath, _ := cmd.Flags().GetString("cib")
	statusPath, _ := cmd.Flags().GetString("status")
	nowFlag, _ := cmd.Flags().GetString("now")
	optionsPath, _ := cmd.Flags().GetString("options")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cibXML, err := os.ReadFile(cibPath)
	if err != nil {
		return fmt.Errorf("reading --cib: %w", err)
	}
	statusXML, err := os.ReadFile(statusPath)
	if err != nil {
		return fmt.Errorf("reading --status: %w", err)
	}

	now := time.Now().UTC()
	if nowFlag != "" {
		now, err = time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("parsing --now: %w", err)
		}
	}

	if optionsPath != "" {
		overrides, err := loadOptionOverrides(optionsPath)
		if err != nil {
			return fmt.Errorf("reading --options: %w", err)
		}
		cibXML, err = mergeOptionOverrides(cibXML, overrides)
		if err != nil {
			return fmt.Errorf("applying --options: %w", err)
		}
	}

	timer := metrics.NewTimer()
	result, schedErr := engine.Schedule(cibXML, statusXML, now)
	duration := timer.Duration()

	if result != nil {
		actionCount := bytes.Count(result.TransitionGraph, []byte("<action "))
		metrics.RecordPass(duration, now, result.NextRecheck, actionCount, result.Diagnostics, schedErr != nil)
	}

	if metricsAddr != "" {
		serveMetrics(metricsAddr)
		defer waitForInterrupt()
	}

	if schedErr != nil {
		printDiagnostics(result)
		return schedErr
	}

	fmt.Println(string(result.TransitionGraph))
	printDiagnostics(result)
	return nil
}

// waitForInterrupt blocks so a --metrics-addr scrape target stays up after
// the pass prints its output, until the operator is done with it.
func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

func printDiagnostics(result *engine.Result) {
	if result == nil || len(result.Diagnostics) == 0 {
		return
	}
	logger := log.WithComponent("schedctl")
	fmt.Fprintf(os.Stderr, "\n%d diagnostic(s):\n", len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "  [%s] %s: %s (%s)\n", d.Severity, d.Code, d.Message, d.SubjectID)
		logDiagnostic(logger, d)
	}
	if !result.NextRecheck.IsZero() {
		fmt.Fprintf(os.Stderr, "\nnext recheck: %s\n", result.NextRecheck.Format(time.RFC3339))
	}
}

// logDiagnostic mirrors one diagnostic onto the structured logger at the
// matching level, so anything scraping schedctl's log output (JSON or
// console) sees the same diagnostics the stderr summary prints — the
// engine core itself never logs per-diagnostic, only appends to its
// diagnostics slice, so this is the one place that translation happens.
func logDiagnostic(logger zerolog.Logger, d types.Diagnostic) {
	event := func() *zerolog.Event {
		switch d.Severity {
		case types.SeverityTrace:
			return logger.Trace()
		case types.SeverityInfo:
			return logger.Info()
		case types.SeverityWarn:
			return logger.Warn()
		case types.SeverityError, types.SeverityConfigError:
			return logger.Error()
		default:
			return logger.Info()
		}
	}()
	event.Str("code", d.Code).Str("subject_id", d.SubjectID).Msg(d.Message)
}

func serveMetrics(addr string) {
	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	fmt.Fprintf(os.Stderr, "metrics endpoint: http://%s/metrics\n", addr)
}
