package cli

import (
	"errors"

	"github.com/tidwall/gjson"
)

// Violation is one entry of a kicad-cli ERC report.
type Violation struct {
	Sheet       string
	Severity    string
	Type        string
	Description string
}

// Report is a parsed ERC report, violations in file order.
type Report struct {
	Violations []Violation
}

// Errors returns the violations with severity "error".
func (r *Report) Errors() []Violation { return r.filter("error") }

// Warnings returns the violations with severity "warning".
func (r *Report) Warnings() []Violation { return r.filter("warning") }

func (r *Report) filter(severity string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == severity {
			out = append(out, v)
		}
	}
	return out
}

// ParseReport reads the JSON written by `kicad-cli sch erc --format json`.
// Every sheet is read, not only the root.
func ParseReport(data []byte) (*Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("cli: erc report is not valid JSON")
	}
	rep := &Report{}
	gjson.GetBytes(data, "sheets").ForEach(func(_, sheet gjson.Result) bool {
		path := sheet.Get("path").String()
		sheet.Get("violations").ForEach(func(_, v gjson.Result) bool {
			rep.Violations = append(rep.Violations, Violation{
				Sheet:       path,
				Severity:    v.Get("severity").String(),
				Type:        v.Get("type").String(),
				Description: v.Get("items.0.description").String(),
			})
			return true
		})
		return true
	})
	return rep, nil
}
