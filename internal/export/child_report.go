// Package export 儿童健康与情绪历史导出为 Excel
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"smoozies-monitor/internal/analysis"
	"smoozies-monitor/internal/models"
)

const (
	SheetProfile  = "Profile"
	SheetVitals   = "Vitals"
	SheetEmotions = "Emotions"
)

// VitalsHeader 体征表头
var VitalsHeader = []string{
	"Timestamp",
	"Heart Rate",
	"Heart Rate Status",
	"Temperature",
	"Temperature Status",
	"Sleep Quality",
	"Sleep Status",
	"Activity",
}

// EmotionsHeader 情绪表头
var EmotionsHeader = []string{
	"Date",
	"Happy %",
	"Calm %",
	"Sad %",
	"Anxious %",
	"Dominant",
}

// ChildReport 生成儿童报告 Excel 文件（Profile / Vitals / Emotions 三个工作表）
func ChildReport(child models.ChildProfile, now time.Time) ([]byte, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetProfile); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetVitals, SheetEmotions} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeTable(f, SheetProfile, []string{"Field", "Value"}, profileRows(child, now), []float64{20, 80}, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, SheetVitals, VitalsHeader, vitalsRows(child), []float64{22, 12, 18, 12, 18, 14, 14, 10}, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, SheetEmotions, EmotionsHeader, emotionRows(child), []float64{14, 10, 10, 10, 10, 12}, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func profileRows(child models.ChildProfile, now time.Time) [][]any {
	rows := [][]any{
		{"Name", child.Name},
		{"Birthdate", child.Birthdate.String()},
		{"Age", models.CalculateAge(child.Birthdate, now)},
		{"Gender", child.Gender},
		{"Plush", plushLabel(child)},
		{"Status", string(child.Status)},
		{"Battery", strconv.Itoa(child.BatteryLevel) + "%"},
		{"Generated At", now.Format("2006-01-02 15:04:05")},
	}

	latest := models.SensorReading{}
	if data, ok := child.PhysicalState.Data(); ok {
		latest = data.Latest
	}
	rows = append(rows, []any{"Daily Report", analysis.SummarizeDailyReport(child.Name, latest).Text})

	if adv, ok := analysis.EmotionAdvisory(child.Name, child.EmotionalState); ok {
		rows = append(rows, []any{"Advisory", adv.Title})
	}
	return rows
}

func plushLabel(child models.ChildProfile) string {
	switch {
	case !child.HasPlush():
		return ""
	case child.PlushName == "":
		return child.PlushID
	default:
		return fmt.Sprintf("%s (%s)", child.PlushName, child.PlushID)
	}
}

func vitalsRows(child models.ChildProfile) [][]any {
	data, ok := child.PhysicalState.Data()
	if !ok {
		return nil
	}
	history := data.History
	if len(history) == 0 && !data.Latest.IsEmpty() {
		history = []models.SensorReading{data.Latest}
	}

	rows := make([][]any, 0, len(history))
	for _, r := range history {
		status := analysis.ClassifyReading(r)
		row := []any{r.Timestamp.UTC().Format("2006-01-02 15:04:05"), nil, status.HeartRate.Label, nil, status.Temperature.Label, nil, status.SleepQuality.Label, nil}
		if r.HeartRate != nil {
			row[1] = *r.HeartRate
		}
		if r.Temperature != nil {
			row[3] = *r.Temperature
		}
		if r.SleepQuality != nil {
			row[5] = *r.SleepQuality
		}
		if r.Activity != nil {
			row[7] = *r.Activity
		}
		rows = append(rows, row)
	}
	return rows
}

func emotionRows(child models.ChildProfile) [][]any {
	data, ok := child.EmotionalState.Data()
	if !ok {
		return nil
	}
	rows := make([][]any, 0, len(data.History))
	for _, d := range data.History {
		dominant, _ := d.Dominant()
		rows = append(rows, []any{d.Date, d.Happy, d.Calm, d.Sad, d.Anxious, dominant})
	}
	return rows
}

// writeTable 写入表头、数据并冻结首行
func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, widths []float64, headerStyle int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, values := range rows {
		row := rowIdx + 2 // 第1行是表头
		for colIdx, value := range values {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell value at %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
