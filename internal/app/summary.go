package app

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// writeSummary renders the per-task outcome table to the output stream.
func (a *App) writeSummary(records map[string]*taskRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(a.outW)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Task", "Kind", "Outcome", "Duration", "Error"})

	for _, spec := range a.model.Tasks {
		rec := records[spec.Name]
		outcome := "skipped"
		dur := ""
		errMsg := ""
		switch {
		case rec.ran && rec.err != nil:
			outcome = "failed"
		case rec.ran:
			outcome = "ok"
		}
		if rec.ran {
			dur = rec.duration.Round(time.Microsecond).String()
		}
		if rec.err != nil {
			errMsg = rec.err.Error()
		}
		tw.AppendRow(table.Row{spec.Name, spec.Kind, outcome, dur, errMsg})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
	})
	tw.Render()
}
