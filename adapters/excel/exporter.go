package excel

import (
	"fmt"
	"math"

	"kpijoin/domain/kpi"
	"kpijoin/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	KPISheet   = "KPI_Results"
	ChartSheet = "Chart_Data"
)

// ContentType is the MIME type of the exported workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportAnalysis serializes an analysis result into an xlsx workbook. The KPI
// sheet is always present; the chart sheet only when a trend was computed.
func ExportAnalysis(result *kpi.Result) ([]byte, error) {
	if result == nil {
		return nil, errors.NothingToExport()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), KPISheet); err != nil {
		return nil, fmt.Errorf("failed to name KPI sheet: %w", err)
	}
	if err := writeKPISheet(f, result.KPIs); err != nil {
		return nil, err
	}

	if result.HasTrend {
		if _, err := f.NewSheet(ChartSheet); err != nil {
			return nil, fmt.Errorf("failed to add chart sheet: %w", err)
		}
		if err := writeChartSheet(f, result.Trend); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeKPISheet writes a name/value table. An empty KPI list leaves the sheet blank.
func writeKPISheet(f *excelize.File, kpis []kpi.KPI) error {
	if len(kpis) == 0 {
		return nil
	}
	if err := f.SetSheetRow(KPISheet, "A1", &[]interface{}{"name", "value"}); err != nil {
		return fmt.Errorf("failed to write KPI header: %w", err)
	}
	for i, k := range kpis {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(KPISheet, cell, &[]interface{}{k.Name, cellValue(k.Value)}); err != nil {
			return fmt.Errorf("failed to write KPI %q: %w", k.Name, err)
		}
	}
	return f.SetColWidth(KPISheet, "A", "A", 28)
}

func writeChartSheet(f *excelize.File, trend []kpi.TrendPoint) error {
	if err := f.SetSheetRow(ChartSheet, "A1", &[]interface{}{"Month", "Count"}); err != nil {
		return fmt.Errorf("failed to write chart header: %w", err)
	}
	for i, p := range trend {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ChartSheet, cell, &[]interface{}{p.Month, p.Count}); err != nil {
			return fmt.Errorf("failed to write month %s: %w", p.Month, err)
		}
	}
	return nil
}

// cellValue leaves non-finite numbers blank
func cellValue(v kpi.Value) interface{} {
	if !v.IsText && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
		return nil
	}
	return v.Interface()
}
