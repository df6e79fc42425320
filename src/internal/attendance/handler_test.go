package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeScanService struct {
	Service
	scanErr error
}

func (f *fakeScanService) Scan(_ context.Context, _ *ScanRequest, _ string) (*RecordDetail, error) {
	return nil, f.scanErr
}

func TestScanDuplicateResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Configuration{}
	cfg.App.Timeout = 5

	h := NewHandler(cfg, &fakeScanService{scanErr: models.ErrAttendanceDuplicate},
		clients.NewActivityPublisher(cfg, nil))

	router := gin.New()
	router.POST("/attendance/scan", h.ScanQRCode)

	body, err := json.Marshal(ScanRequest{
		Token:     "6f1d2a",
		SessionID: primitive.NewObjectID().Hex(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/attendance/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Attendance already recorded for this session", resp.Message)
}
