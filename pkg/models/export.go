package models

// ExportFormat is a downloadable document format
type ExportFormat string

// ExportFormat constants
const (
	ExportDOCX ExportFormat = "docx"
	ExportTXT  ExportFormat = "txt"
	ExportHTML ExportFormat = "html"
)

// Valid reports whether the format is supported
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportDOCX, ExportTXT, ExportHTML:
		return true
	}
	return false
}

// ExportDocument is the content written into an exported file
type ExportDocument struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	Transcript  string `json:"transcript"`
	Extractive  string `json:"extractive"`
	Abstractive string `json:"abstractive"`
}
