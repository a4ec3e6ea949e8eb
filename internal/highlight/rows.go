package highlight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractRows returns the outer HTML of every row of the last highlight
// table in markup, in document order. Markup without a highlight table has
// no rows.
func ExtractRows(markup string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse highlighted markup: %w", err)
	}

	table := doc.Find("table." + TableClass).Last()
	if table.Length() == 0 {
		return nil, nil
	}

	var rows []string
	var rowErr error
	table.Find("tr").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		row, err := goquery.OuterHtml(s)
		if err != nil {
			rowErr = fmt.Errorf("render row: %w", err)
			return false
		}
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return rows, nil
}

// Line is the plain text of one highlighted row.
type Line struct {
	Number int
	Text   string
}

// PlainLines strips the markup from stored chunks and returns their lines in
// order. Rows without a line anchor are numbered by position.
func PlainLines(chunks ...string) ([]Line, error) {
	markup := `<table class="` + TableClass + `"><tbody>` + strings.Join(chunks, "") + "</tbody></table>"
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse stored rows: %w", err)
	}

	var lines []Line
	doc.Find("tr").Each(func(i int, s *goquery.Selection) {
		line := Line{Number: i + 1}
		if attr, ok := s.Find("td." + NumClass).Attr("id"); ok {
			if n, err := strconv.Atoi(strings.TrimPrefix(attr, "L")); err == nil {
				line.Number = n
			}
		}

		code := s.Find("td." + CodeClass)
		if code.Length() > 0 {
			line.Text = code.Text()
		} else {
			line.Text = s.Text()
		}
		lines = append(lines, line)
	})
	return lines, nil
}
