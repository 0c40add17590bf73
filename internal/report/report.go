// Package report renders the result of a tuning run for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// DashboardPath is where the aggregation script writes its dashboard,
// relative to the scripts directory.
const DashboardPath = "analyzer/aggregated-results/dashboard.html"

// WritePeaks renders one row per searched interval, marking the selected one
func WritePeaks(w io.Writer, outcome models.SearchOutcome) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Interval (s)", "Gas limit", "Peak TPS", ""})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	if len(outcome.Peaks) == 0 {
		table.Append([]string{"-", "-", "-", ""})
		table.Render()
		return
	}

	best := outcome.Candidate()
	marked := false
	for _, p := range outcome.Peaks {
		throughput := "failed"
		if p.Throughput >= 0 {
			throughput = strconv.FormatFloat(p.Throughput, 'f', 2, 64)
		}
		mark := ""
		if !marked && p.Interval == best.Interval && p.GasLimit == best.GasLimit {
			mark = "best"
			marked = true
		}
		table.Append([]string{strconv.Itoa(p.Interval), strconv.Itoa(p.GasLimit), throughput, mark})
	}
	table.Render()
}

// WriteSummary prints the final result lines. dashboard may be empty when
// reports were not aggregated.
func WriteSummary(w io.Writer, outcome models.SearchOutcome, elapsed time.Duration, dashboard string) {
	fmt.Fprintf(w, "Best result found: block interval %ds, block gas limit %d, throughput %.2f tps\n",
		outcome.Interval, outcome.GasLimit, outcome.Throughput)
	fmt.Fprintf(w, "Evaluations: %d", outcome.Evaluations)
	if outcome.StopReason != "" {
		fmt.Fprintf(w, " (stopped: %s)", outcome.StopReason)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Execution time: %d\n", int64(elapsed/time.Second))
	if dashboard != "" {
		fmt.Fprintf(w, "End of tool execution, please check the dashboard generated under %s.\n", dashboard)
	}
}
