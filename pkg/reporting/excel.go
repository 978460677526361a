package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
)

const (
	tradesSheet  = "Trades"
	summarySheet = "Summary"
)

var tradeHeaders = []string{
	"ID", "Side", "Entry Time", "Exit Time", "Entry Price", "Exit Price",
	"Stop Loss", "Take Profit", "Size", "Commission", "PnL", "Balance", "Reason",
}

// DefaultExcelReporter writes a Trades and a Summary sheet
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates an Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes the workbook to path, creating its directory
func (r *DefaultExcelReporter) WriteTradesXLSX(results *backtest.BacktestResults, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, results, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, results, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	cellBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10, // 0.00%
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	fmtPrice := "0.0000"
	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtPrice,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       cellBorder,
	})
	if err != nil {
		return styles, err
	}

	fmtDate := "yyyy-mm-dd hh:mm"
	styles.DateStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtDate,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
		Border:       cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.ProfitStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.LabelStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: cellBorder,
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	widths := []float64{38, 8, 18, 18, 12, 12, 12, 12, 12, 12, 12, 14, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := fx.SetColWidth(tradesSheet, col, col, w); err != nil {
			return err
		}
	}

	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
		fx.SetCellStyle(tradesSheet, cell, cell, styles.HeaderStyle)
	}

	for i, t := range results.Trades {
		row := i + 2
		pnlStyle := styles.LossStyle
		if t.PnL > 0 {
			pnlStyle = styles.ProfitStyle
		}
		values := []struct {
			v     interface{}
			style int
		}{
			{t.ID, 0},
			{string(t.Side), 0},
			{t.EntryTime, styles.DateStyle},
			{t.ExitTime, styles.DateStyle},
			{t.EntryPrice, styles.NumberStyle},
			{t.ExitPrice, styles.NumberStyle},
			{t.StopLoss, styles.NumberStyle},
			{t.TakeProfit, styles.NumberStyle},
			{t.Size, styles.NumberStyle},
			{t.Commission, styles.CurrencyStyle},
			{t.PnL, pnlStyle},
			{t.Balance, styles.CurrencyStyle},
			{string(t.Reason), 0},
		}
		for col, c := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(tradesSheet, cell, c.v); err != nil {
				return err
			}
			if c.style != 0 {
				fx.SetCellStyle(tradesSheet, cell, cell, c.style)
			}
		}
	}

	return fx.SetPanes(tradesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(summarySheet, "A", "A", 22)
	fx.SetColWidth(summarySheet, "B", "B", 22)

	fx.SetCellValue(summarySheet, "A1", "Metric")
	fx.SetCellValue(summarySheet, "B1", "Value")
	fx.SetCellStyle(summarySheet, "A1", "B1", styles.HeaderStyle)

	// percentages are stored as fractions so the % format renders them
	rows := []struct {
		label string
		v     interface{}
		style int
	}{
		{"Symbol", results.Symbol, 0},
		{"Timeframe", results.Timeframe, 0},
		{"Candles", results.Candles, 0},
		{"Start", results.StartTime, styles.DateStyle},
		{"End", results.EndTime, styles.DateStyle},
		{"Initial Balance", results.StartBalance, styles.CurrencyStyle},
		{"Final Balance", results.EndBalance, styles.CurrencyStyle},
		{"Total Trades", results.TotalTrades, 0},
		{"Winning Trades", results.WinningTrades, 0},
		{"Losing Trades", results.LosingTrades, 0},
		{"Win Rate", results.WinRate / 100, styles.PercentStyle},
		{"Total PnL", results.TotalPnL, styles.CurrencyStyle},
		{"ROI", results.ROI / 100, styles.PercentStyle},
		{"Max Drawdown", results.MaxDrawdown / 100, styles.PercentStyle},
		{"Avg Win/Loss", results.ProfitFactor, styles.NumberStyle},
	}
	for i, m := range rows {
		row := i + 2
		label := fmt.Sprintf("A%d", row)
		value := fmt.Sprintf("B%d", row)
		fx.SetCellValue(summarySheet, label, m.label)
		fx.SetCellStyle(summarySheet, label, label, styles.LabelStyle)
		if err := fx.SetCellValue(summarySheet, value, m.v); err != nil {
			return err
		}
		if m.style != 0 {
			fx.SetCellStyle(summarySheet, value, value, m.style)
		}
	}
	return nil
}
