// Package export renders the sign-up sheet as a downloadable artifact: an
// HTML template printed to PDF through headless Chrome, or a plain CSV that
// needs no Chrome at all.
package export

import "fmt"

// Service generates gear sheet exports.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export generates an export in the requested format from a rendered sheet.
func (s *Service) Export(data SheetData, format Format) (*Result, error) {
	switch format {
	case FormatPDF:
		html, err := RenderSheetHTML(data)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportPDF(html, data.Title)
	case FormatCSV:
		return exportCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
