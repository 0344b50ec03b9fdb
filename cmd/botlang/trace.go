package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

var traceCommand = cli.Command{
	Action:    summarizeTrace,
	Name:      "trace",
	Usage:     "Summarize a JSONL trace written by run --trace",
	ArgsUsage: "<trace.jsonl>",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "text", Usage: "Print a table instead of JSON"},
	},
	Category: "DEBUGGING COMMANDS",
}

// TraceSummary aggregates a trace file.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Calls       int            `json:"calls"`
	CallsByName map[string]int `json:"callsByName"`
	Suspends    int            `json:"suspends"`
	LoopGuards  int            `json:"loopGuards"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

func summarizeTrace(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		return exitf(runtime.ExitUsage, "%s", diagnostics.FormatLine(diag))
	}
	defer f.Close()

	summary := computeTraceSummary(f)
	if ctx.Bool("text") {
		printTraceSummaryText(os.Stdout, summary)
		return nil
	}
	b, _ := json.Marshal(summary)
	fmt.Println(string(b))
	return nil
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceCallStart:
			summary.Calls++
			if name := event.Data["fn"]; name != "" {
				summary.CallsByName[name]++
			}
		case evaluator.TraceSuspend:
			summary.Suspends++
		case evaluator.TraceLoopGuard:
			summary.LoopGuards++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}
	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Suspends: %d\n", s.Suspends)
	fmt.Fprintf(w, "Loop guards: %d\n", s.LoopGuards)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
	fmt.Fprintf(w, "Calls: %d\n", s.Calls)
	if len(s.CallsByName) == 0 {
		return
	}

	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.CallsByName[names[i]], s.CallsByName[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Function", "Calls"})
	table.SetAutoFormatHeaders(false)
	for _, name := range names {
		table.Append([]string{name, strconv.Itoa(s.CallsByName[name])})
	}
	table.Render()
}
