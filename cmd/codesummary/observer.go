package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

// consoleObserver reports analysis progress. On a terminal it redraws one
// progress line in place; otherwise progress goes to the logger, sampled in
// 5% buckets so long runs do not flood the output.
type consoleObserver struct {
	out         io.Writer
	interactive bool
	logger      *slog.Logger
	sampler     *logging.ProgressSampler

	mu        sync.Mutex
	lineWidth int
}

func newConsoleObserver(out io.Writer, interactive bool, logger *slog.Logger) *consoleObserver {
	return &consoleObserver{
		out:         out,
		interactive: interactive,
		logger:      logging.NewComponentLogger(logger, "progress"),
		sampler:     logging.NewProgressSampler(5),
	}
}

func (o *consoleObserver) OnProgress(message string, percent float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.interactive {
		o.redraw(fmt.Sprintf("[%3.0f%%] %s", percent, message))
		return
	}
	if o.sampler.ShouldLog(percent, message) {
		o.logger.Info("progress",
			logging.String(logging.FieldStage, message),
			logging.Int("percent", int(percent)),
		)
	}
}

func (o *consoleObserver) OnNodeStatus(node *tree.Node, status string) {
	if !strings.HasPrefix(status, "failed") {
		o.logger.Debug("node status",
			logging.String(logging.FieldNode, node.Key()),
			logging.String("status", status),
		)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.interactive {
		o.clear()
		failColor.Fprintf(o.out, "✗ %s: %s\n", node.Key(), strings.TrimPrefix(status, "failed: "))
	}
}

// Finish ends the in-place progress line.
func (o *consoleObserver) Finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.interactive && o.lineWidth > 0 {
		fmt.Fprintln(o.out)
		o.lineWidth = 0
	}
}

func (o *consoleObserver) redraw(line string) {
	pad := ""
	if n := o.lineWidth - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(o.out, "\r%s%s", line, pad)
	o.lineWidth = len(line)
}

func (o *consoleObserver) clear() {
	if o.lineWidth == 0 {
		return
	}
	fmt.Fprintf(o.out, "\r%s\r", strings.Repeat(" ", o.lineWidth))
	o.lineWidth = 0
}
