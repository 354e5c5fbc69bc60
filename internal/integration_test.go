package internal

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/minhchien137/MachineStatusUpdate/config"
	"github.com/minhchien137/MachineStatusUpdate/internal/api"
	"github.com/minhchien137/MachineStatusUpdate/internal/db"
	"github.com/minhchien137/MachineStatusUpdate/internal/model"
	"github.com/minhchien137/MachineStatusUpdate/internal/mw"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
)

// TestStatusLifecycle submits status changes through the HTTP API and checks
// that listing and downtime reports reflect them.
func TestStatusLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	require.NoError(t, testDB.Create(&model.Machine{SVNCode: "CNC-7", Project: "Machining"}).Error)

	cfg := &config.Config{
		Uploads: config.UploadsConfig{RootDir: t.TempDir()},
		Reports: config.ReportsConfig{Timezone: "UTC"},
	}
	cfg.ApplyDefaults()

	s := store.NewCachedStore(store.NewGormStore(testDB, store.WithInsertProcedure(cfg.Database.InsertProcedure)), cfg.Cache.MachineTTL)
	router := api.NewRouter(s, cfg, mw.NewSubmitLimiter(100, 100))

	submit := func(state string) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("code", "CNC-7"))
		require.NoError(t, w.WriteField("state", state))
		require.NoError(t, w.Close())

		rec := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/status", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	submit("Run")
	submit("Down")
	submit("Run")

	// Timestamps come from the wall clock; rewrite them to known values.
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	var events []model.StatusEvent
	require.NoError(t, testDB.Order(`"Id"`).Find(&events).Error)
	require.Len(t, events, 3)
	for i, offset := range []time.Duration{0, 30 * time.Minute, 45 * time.Minute} {
		require.NoError(t, testDB.Model(&events[i]).Update("Datetime", base.Add(offset)).Error)
	}

	get := func(path string, out any) {
		rec := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}

	var page struct {
		Items []model.StatusEvent `json:"items"`
		Total int                 `json:"totalRecords"`
	}
	get("/api/status?code=CNC-7", &page)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "#7", page.Items[0].Name)
	assert.Equal(t, "Machining", page.Items[0].Operation)

	var summary struct {
		Items []struct {
			State        string  `json:"state"`
			TotalMinutes float64 `json:"totalMinutes"`
		} `json:"items"`
	}
	get("/api/downtime/summary?fromInsDateTime=2024-03-01", &summary)
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "Run", summary.Items[0].State)
	assert.Equal(t, 30.0, summary.Items[0].TotalMinutes)
	assert.Equal(t, "Down", summary.Items[1].State)
	assert.Equal(t, 15.0, summary.Items[1].TotalMinutes)
}
