package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

// CSVHeader lists the columns written by WriteCSV
var CSVHeader = []string{"index", "time", "actual", "predicted", "diff", "deviation", "upper", "lower", "label"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes one row per point of r
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range r.Points {
		row := []string{
			strconv.Itoa(p.Index),
			p.Time.Format(time.RFC3339),
			formatFloat(p.Actual),
			formatFloat(p.Predicted),
			formatFloat(p.Diff),
			formatFloat(p.Deviation),
			formatFloat(p.Upper),
			formatFloat(p.Lower),
			string(p.Label),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTable renders the points as an aligned text table followed by the
// anomaly list, for terminal output
func WriteTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "index\ttime\tactual\tpredicted\tdiff\tdeviation\tupper\tlower\tlabel\t")
	for _, p := range r.Points {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t\n",
			p.Index, p.Time.Format("2006-01-02"), p.Actual, p.Predicted, p.Diff, p.Deviation, p.Upper, p.Lower, p.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := r.Summary
	fmt.Fprintf(w, "\n%s: %d anomalies in %d points (%d spikes, %d drops)\n", r.Series, s.Anomalies, s.Points, s.Spikes, s.Drops)
	for _, a := range r.Anomalies {
		fmt.Fprintf(w, "  %s  index=%d  actual=%.4f  predicted=%.4f  %s  score=%.2f\n",
			a.Time, a.Index, a.Value, a.Predicted, a.Type, a.Score)
	}
	return nil
}
