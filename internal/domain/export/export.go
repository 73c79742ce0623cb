// Package export renders the displayed entries as CSV, JSON or a printable
// HTML table.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
)

// Format is an export target.
type Format string

// Supported formats.
const (
	CSV   Format = "csv"
	JSON  Format = "json"
	Print Format = "print"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	default:
		return "text/html; charset=utf-8"
	}
}

// Ext returns the file extension of f.
func (f Format) Ext() string {
	if f == Print {
		return "html"
	}
	return string(f)
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, JSON, Print:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

const filePrefix = "高中錄取分數_"

// FileName returns the download name for an export taken at now.
func FileName(f Format, now time.Time) string {
	return filePrefix + now.Format("2006-1-2") + "." + f.Ext()
}

// Headers are the column titles shared by CSV and print output.
var Headers = []string{ //nolint:gochecknoglobals // fixed table
	"年份", "學校", "科系/班別", "區域",
	"國文", "英文", "數學", "自然", "社會", "作文",
	"總積分", "總積點", "備註",
}

// Write renders entries in format f.
func Write(w io.Writer, f Format, entries []model.Entry, now time.Time) error {
	switch f {
	case CSV:
		return WriteCSV(w, entries)
	case JSON:
		return WriteJSON(w, entries)
	case Print:
		return WritePrint(w, entries, now)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteCSV writes one header row then one row per entry. Free-text columns
// are always quoted.
func WriteCSV(w io.Writer, entries []model.Entry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Headers, ",")); err != nil {
		return err
	}
	for _, e := range entries {
		row := make([]string, 0, len(Headers))
		row = append(row, e.Year, quote(e.School), quote(e.DisplayDepartment()), e.Region)
		for _, s := range grade.Subjects {
			row = append(row, string(e.Scores.Get(s)))
		}
		row = append(row, e.Composition.String(), e.Total, e.TotalPoints, quote(e.Comment))
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteJSON writes entries as a two-space indented array.
func WriteJSON(w io.Writer, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(entries)
}

// ReadJSON parses an export produced by WriteJSON.
func ReadJSON(r io.Reader) ([]model.Entry, error) {
	var out []model.Entry
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return out, nil
}

type printRow struct {
	Year, School, Department, Region string
	Grades                           []string
	Composition                      string
	Total, TotalPoints, Comment      string
}

type printPage struct {
	Date    string
	Headers []string
	Rows    []printRow
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>高中錄取分數列表</title>
<style>
body { font-family: Arial, sans-serif; }
table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.header { text-align: center; margin-bottom: 20px; }
.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
</style>
</head>
<body onload="window.print()">
<div class="header">
<h1>高中錄取分數列表</h1>
<p>匯出日期：{{.Date}}</p>
</div>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Year}}年</td><td>{{.School}}</td><td>{{.Department}}</td><td>{{.Region}}</td>{{range .Grades}}<td>{{.}}</td>{{end}}<td>{{.Composition}}級</td><td>{{.Total}}</td><td>{{.TotalPoints}}</td><td>{{.Comment}}</td></tr>
{{- end}}
</tbody>
</table>
<div class="footer"><p>本資料來自高中錄取分數分享平台，僅供參考。</p></div>
</body>
</html>
`))

// WritePrint renders a printable HTML table dated now.
func WritePrint(w io.Writer, entries []model.Entry, now time.Time) error {
	page := printPage{Date: now.Format("2006/1/2"), Headers: Headers, Rows: make([]printRow, 0, len(entries))}
	for _, e := range entries {
		row := printRow{
			Year:        e.Year,
			School:      e.School,
			Department:  e.DisplayDepartment(),
			Region:      e.Region,
			Composition: e.Composition.String(),
			Total:       e.DisplayTotal(),
			TotalPoints: e.DisplayTotalPoints(),
			Comment:     e.Comment,
		}
		for _, s := range grade.Subjects {
			row.Grades = append(row.Grades, string(e.Scores.Get(s)))
		}
		page.Rows = append(page.Rows, row)
	}
	return printTemplate.Execute(w, page)
}
