package export

// Export format constants
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatPDF   = "pdf"
	FormatJSON  = "json"
)

type Request struct {
	Format    string `form:"format"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	SessionID string `form:"sessionId"`
	Status    string `form:"status"`
}

// File is a rendered export ready to stream as an attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// dataset is a tabular export before rendering: a header row plus data
// rows, all stringified.
type dataset struct {
	title   string
	headers []string
	rows    [][]string
}
