package bot

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintBanner renders the startup configuration table
func (b *SignalBot) PrintBanner(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(strings.ToUpper(b.opts.Name))
	t.SetStyle(table.StyleRounded)

	mode := "every timeframe"
	if b.opts.Consensus != nil {
		mode = "consensus, anchor " + b.opts.Consensus.Anchor()
	}

	poll := b.opts.PollInterval.String()
	if b.opts.AlignToCandle {
		poll = fmt.Sprintf("next candle close + %s", b.opts.CloseDelay)
	}

	t.AppendRows([]table.Row{
		{"📊 Symbols", strings.Join(b.opts.Symbols, ", ")},
		{"⏰ Timeframes", strings.Join(b.opts.Timeframes, ", ")},
		{"🔍 Detector", fmt.Sprintf("%s (%s)", b.detectorName(), mode)},
		{"🏪 Data source", b.opts.Source.Name()},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🧊 Cooldown", string(b.opts.Gate.Policy().Mode())},
		{"💾 State", b.opts.Gate.StoreName()},
		{"📣 Notifier", b.opts.Notifier.Name()},
		{"🔄 Poll", poll},
	})
	if path := b.logger.GetLogPath(); path != "" {
		t.AppendSeparator()
		t.AppendRow(table.Row{"📝 Log file", path})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(w)
}
