package export

import (
	"errors"
	"time"
)

type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

var (
	ErrUnsupportedFormat    = errors.New("unsupported export format")
	ErrPDFDependencyMissing = errors.New("pdf export unavailable")
)

// Result is a generated export artifact.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ClaimCell is one claim shown in a row.
type ClaimCell struct {
	UserName string
	Note     string
}

// ItemRow is one gear item with its claims.
type ItemRow struct {
	Name   string
	Note   string
	Quota  string // "used/total", empty for unlimited items
	Claims []ClaimCell
}

// CategorySection groups the rows of one category.
type CategorySection struct {
	Name  string
	Icon  string
	Items []ItemRow
}

// SheetData is the rendered view of the whole sign-up sheet.
type SheetData struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Claimants   []string
	Sections    []CategorySection
}
