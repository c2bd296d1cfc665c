package report

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/infra/fsx"
	"github.com/John-Robertt/mediasort/internal/tags"
)

const (
	csvTimeLayout = "2006-01-02 15:04:05"
	notApplicable = "N/A"
	resultFailed  = "Failed"
)

// writeAudioCSV：Title, Artist, Album, File Path（目标位置上实际存在的音频）。
func writeAudioCSV(dir string, entries []Entry) error {
	rows := [][]string{{"Title", "Artist", "Album", "File Path"}}
	for _, e := range entries {
		rows = append(rows, []string{
			orUnknown(e.Record.ExtraValue(domain.ExtraTitle), tags.UnknownTitle),
			orUnknown(e.Record.ExtraValue(domain.ExtraArtist), tags.UnknownArtist),
			orUnknown(e.Record.ExtraValue(domain.ExtraAlbum), tags.UnknownAlbum),
			e.Outcome.Dest,
		})
	}
	return writeCSV(dir, AudioCSVFile, rows)
}

// writeOtherCSV：File Name, Destination Path（不含文件名）, Last Modified Date。
func writeOtherCSV(dir string, entries []Entry) error {
	rows := [][]string{{"File Name", "Destination Path", "Last Modified Date"}}
	for _, e := range entries {
		rows = append(rows, []string{
			filepath.Base(e.Record.Path),
			filepath.Dir(e.Outcome.Dest),
			e.Record.Modified.Local().Format(csvTimeLayout),
		})
	}
	return writeCSV(dir, OtherCSVFile, rows)
}

func writeCSV(dir, name string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name, buf.Bytes())
}

// writeOtherXLSX 与 other CSV 同列，日期列是 Excel 日期（mm/dd/yyyy）。
func writeOtherXLSX(dir string, entries []Entry) error {
	const sheet = "Other Files"
	f, err := newWorkbook(sheet, []any{"File Name", "Destination Path", "Last Modified Date"})
	if err != nil {
		return err
	}
	defer f.Close()

	for i, e := range entries {
		row := []any{
			filepath.Base(e.Record.Path),
			filepath.Dir(e.Outcome.Dest),
			e.Record.Modified.Local(),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := setWidths(f, sheet, 30, 60, 20); err != nil {
		return err
	}
	if len(entries) > 0 {
		format := "mm/dd/yyyy"
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "C2", "C"+strconv.Itoa(len(entries)+1), style); err != nil {
			return err
		}
	}
	return saveWorkbook(f, dir, OtherXLSXFile)
}

// writeMasterXLSX：每个源文件一行（源列表顺序）。
// File Name, Source Path, Destination Path（未落盘为 N/A）, Result（Copied/Renamed/Ignored/Failed）。
func writeMasterXLSX(destRoot string, entries []Entry) error {
	const sheet = "Master Report"
	f, err := newWorkbook(sheet, []any{"File Name", "Source Path", "Destination Path", "Result"})
	if err != nil {
		return err
	}
	defer f.Close()

	for i, e := range entries {
		dest := notApplicable
		result := e.Outcome.Result.Label()
		if e.Landed() {
			dest = e.Outcome.Dest
		}
		if e.CopyErr != nil {
			result = resultFailed
		}
		row := []any{filepath.Base(e.Record.Path), e.Record.Path, dest, result}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := setWidths(f, sheet, 30, 60, 60, 15); err != nil {
		return err
	}
	return saveWorkbook(f, destRoot, MasterXLSXFile)
}

func newWorkbook(sheet string, header []any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func setWidths(f *excelize.File, sheet string, widths ...float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func saveWorkbook(f *excelize.File, dir, name string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name, buf.Bytes())
}

func orUnknown(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
