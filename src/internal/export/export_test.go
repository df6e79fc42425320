package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/attendance"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleDataset() *dataset {
	return &dataset{
		title:   "sample-export",
		headers: []string{"Name", "Status"},
		rows: [][]string{
			{"Tendai Moyo", "PRESENT"},
			{"Rudo Dube", "LATE"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	file, err := render(sampleDataset(), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Name, "sample-export-"))
	assert.True(t, strings.HasSuffix(file.Name, ".csv"))

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Name", "Status"}, records[0])
	assert.Equal(t, []string{"Tendai Moyo", "PRESENT"}, records[1])
}

func TestRenderExcel(t *testing.T) {
	file, err := render(sampleDataset(), FormatExcel)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

	book, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(book.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Status"}, rows[0])
	assert.Equal(t, []string{"Rudo Dube", "LATE"}, rows[2])
}

func TestRenderPDF(t *testing.T) {
	file, err := render(sampleDataset(), FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestRenderJSON(t *testing.T) {
	file, err := render(sampleDataset(), FormatJSON)
	require.NoError(t, err)

	var objects []map[string]string
	require.NoError(t, json.Unmarshal(file.Data, &objects))
	require.Len(t, objects, 2)
	assert.Equal(t, "Tendai Moyo", objects[0]["Name"])
	assert.Equal(t, "LATE", objects[1]["Status"])
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 30)
	got := truncate(long, 18)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 15)+"...", got)

	assert.Equal(t, "short", truncate("short", 18))
}

func TestNormalizeFormat(t *testing.T) {
	format, err := normalizeFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format, "csv is the default")

	_, err = normalizeFormat("docx")
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

type fakeSessionRepo struct {
	session.Repository
	sessions []*session.Session
}

func (f *fakeSessionRepo) List(_ context.Context, _ *session.ListFilter) ([]*session.Session, int64, error) {
	return f.sessions, int64(len(f.sessions)), nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*session.Session, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, models.ErrSessionNotFound
}

type fakeAttendanceRepo struct {
	attendance.Repository
	bySession map[primitive.ObjectID][]*attendance.Record
}

func (f *fakeAttendanceRepo) BySession(_ context.Context, sessionID primitive.ObjectID) ([]*attendance.Record, error) {
	return f.bySession[sessionID], nil
}

type fakeMemberRepo struct {
	member.Repository
}

type fakeCellRepo struct {
	cell.Repository
}

func (f *fakeCellRepo) List(_ context.Context) ([]*cell.Cell, error) {
	return nil, nil
}

func TestExportReportAggregatesPerSession(t *testing.T) {
	sess := &session.Session{
		ID:          primitive.NewObjectID(),
		Name:        "Sunday Service",
		SessionType: session.TypeSundayService,
		StartTime:   time.Now(),
		EndTime:     time.Now().Add(2 * time.Hour),
		Status:      session.StatusClosed,
	}

	records := []*attendance.Record{
		{SessionID: sess.ID, Status: attendance.StatusPresent},
		{SessionID: sess.ID, Status: attendance.StatusPresent},
		{SessionID: sess.ID, Status: attendance.StatusLate},
		{SessionID: sess.ID, Status: attendance.StatusExcused},
	}

	svc := NewExportService(
		&fakeAttendanceRepo{bySession: map[primitive.ObjectID][]*attendance.Record{sess.ID: records}},
		&fakeMemberRepo{},
		&fakeSessionRepo{sessions: []*session.Session{sess}},
		&fakeCellRepo{},
	)

	file, err := svc.ExportReport(context.Background(), &Request{Format: FormatCSV})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "Sunday Service", row[0])
	assert.Equal(t, "4", row[4], "total")
	assert.Equal(t, "2", row[5], "present")
	assert.Equal(t, "1", row[6], "late")
	assert.Equal(t, "0", row[7], "absent")
	assert.Equal(t, "1", row[8], "excused")
	assert.Equal(t, "75.0%", row[9])
}
