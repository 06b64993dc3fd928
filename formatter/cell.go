package formatter

import (
	"bytes"
	"fmt"
	"math/big"
	"text/template"

	"github.com/fatih/color"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
)

// Mode selects how a cell's outcome is shown.
type Mode int

const (
	// Search shows the lower bound found for each cell.
	Search Mode = iota
	// Certify shows whether each cell's proof went through.
	Certify
)

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	failureStyle = color.New(color.FgRed, color.Bold)
	boundStyle   = color.New(color.FgCyan, color.Bold)
	cellStyle    = color.New(color.FgHiBlue)
	noteStyle    = color.New(color.FgYellow)
	noStyle      = color.New(color.FgWhite)
)

// cellFormatter supplies the template for one mode's per-cell line.
type cellFormatter interface {
	CellTemplate() string
}

type SearchCellFormatter struct{}

func (f *SearchCellFormatter) CellTemplate() string {
	return "{{cell .Cell}}: {{if .Failed}}{{failure .Status}}{{else}}{{bound .Bound}}{{end}}\n{{note .Note}}"
}

type CertifyCellFormatter struct{}

func (f *CertifyCellFormatter) CellTemplate() string {
	return "{{cell .Cell}}: {{if .Failed}}{{failure .Status}}{{else}}{{success .Status}}{{end}}\n{{note .Note}}"
}

func getCellFormatter(mode Mode) cellFormatter {
	if mode == Certify {
		return &CertifyCellFormatter{}
	}
	return &SearchCellFormatter{}
}

type CellData struct {
	Cell   types.Cell
	Status types.CellStatus
	Failed bool
	Bound  *big.Rat
	Note   string
}

// FormatCell renders one finished cell as a line of the run report. With
// verbose set, a failed cell gets a second line saying why, and a cell
// taken from the cache says so.
func FormatCell(res types.CellResult, mode Mode, verbose bool) string {
	data := CellData{
		Cell:   res.Cell,
		Status: res.Status,
		Failed: res.Status.Failed(),
		Bound:  res.LowerBound,
	}
	if verbose {
		switch {
		case res.Err != nil:
			data.Note = res.Err.Error()
		case res.Cached:
			data.Note = "reused from an earlier run"
		}
	}

	funcMap := template.FuncMap{
		"cell":    cell,
		"bound":   bound,
		"success": success,
		"failure": failure,
		"note":    note,
	}
	tmpl := template.Must(template.New("cell").Funcs(funcMap).Parse(getCellFormatter(mode).CellTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting cell: %v\n", err)
	}
	return buf.String()
}

// FormatWorst renders the closing line of a search.
func FormatWorst(worst *big.Rat) string {
	return noStyle.Sprint("Worst error = ") + bound(worst) + "\n"
}

// FormatVerdict renders the closing line of a certification.
func FormatVerdict(ok bool) string {
	if ok {
		return successStyle.Sprint("proof succeeded!") + "\n"
	}
	return failureStyle.Sprint("proof failed") + "\n"
}

// utils functions used in the text templates

func cell(c types.Cell) string {
	return cellStyle.Sprint(c.String())
}

func bound(r *big.Rat) string {
	if r == nil {
		return failureStyle.Sprint("none")
	}
	return boundStyle.Sprint(r.FloatString(4))
}

func success(s types.CellStatus) string {
	return successStyle.Sprint(s.String())
}

func failure(s types.CellStatus) string {
	return failureStyle.Sprint(s.String())
}

func note(text string) string {
	if text == "" {
		return ""
	}
	return noteStyle.Sprint("  Note: ") + noStyle.Sprintf("%s\n", text)
}
