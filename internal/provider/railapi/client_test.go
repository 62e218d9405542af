package railapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/seatwatch/internal/provider"
	"github.com/albapepper/seatwatch/internal/watch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchFiltersWindowAndSpeed(t *testing.T) {
	var gotQuery string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/trains", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"trains":[
			{"train_no":"101","train_type":"KTX","dep_time":"0715","arr_time":"0950","seats":{"economy":3,"business":0}},
			{"train_no":"1201","train_type":"ITX","dep_time":"08:00","arr_time":"11:40","seats":{"economy":9}},
			{"train_no":"105","train_type":"KTX","dep_time":"1100","arr_time":"1335","seats":{"economy":5}},
			{"train_no":"309","train_type":"SRT","high_speed":true,"dep_time":"10:59:00","arr_time":"13:30","seats":{"business":2}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 6000, 5*time.Second, quietLogger())
	trains, err := c.Search(context.Background(), provider.Query{
		FromStationID: "0001",
		ToStationID:   "0020",
		Date:          "2026-10-25",
		Window:        watch.Window{Start: "07:00", End: "11:00"},
		CabinClass:    watch.CabinEconomy,
		HighSpeedOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotAuth)
	assert.Contains(t, gotQuery, "date=20261025")
	assert.Contains(t, gotQuery, "time_from=0700")

	require.Len(t, trains, 2)
	assert.Equal(t, "101", trains[0].TrainNumber)
	assert.Equal(t, "07:15", trains[0].DepartureTime)
	assert.Equal(t, 3, trains[0].Available(watch.CabinEconomy))
	assert.Equal(t, "309", trains[1].TrainNumber)
	assert.Equal(t, "10:59", trains[1].DepartureTime)
	assert.Equal(t, 2, trains[1].Available(watch.CabinBusiness))
}

func TestSearchReturnsErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 6000, time.Second, quietLogger())
	_, err := c.Search(context.Background(), provider.Query{Window: watch.Window{Start: "00:00", End: "23:59"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSearchHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 6000, 50*time.Millisecond, quietLogger())
	_, err := c.Search(context.Background(), provider.Query{})
	assert.Error(t, err)
}

func TestNormalizeClock(t *testing.T) {
	assert.Equal(t, "08:30", normalizeClock("0830"))
	assert.Equal(t, "08:30", normalizeClock("08:30:00"))
	assert.Equal(t, "08:30", normalizeClock(" 08:30 "))
}
