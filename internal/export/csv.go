package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// exportCSV flattens the sheet into one row per claim, which covers the
// "open it in a spreadsheet" use without needing Chrome.
func exportCSV(data SheetData) (*Result, error) {
	var buf bytes.Buffer
	// BOM so Excel detects UTF-8 and renders CJK names correctly.
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(&buf)
	header := []string{"類別", "品項", "額度", "認領人", "備註"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, section := range data.Sections {
		for _, item := range section.Items {
			if len(item.Claims) == 0 {
				row := []string{section.Name, item.Name, item.Quota, "", ""}
				if err := writer.Write(row); err != nil {
					return nil, fmt.Errorf("write csv row: %w", err)
				}
				continue
			}
			for _, claim := range item.Claims {
				row := []string{section.Name, item.Name, item.Quota, claim.UserName, claim.Note}
				if err := writer.Write(row); err != nil {
					return nil, fmt.Errorf("write csv row: %w", err)
				}
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	filename := sanitizeFilename(data.Title)
	if !strings.HasSuffix(filename, ".csv") {
		filename += ".csv"
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: filename,
		MimeType: "text/csv; charset=utf-8",
	}, nil
}
