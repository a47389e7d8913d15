package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/database"
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	database.InitDB(":memory:")
	m.Run()
}

const feedBody = `{"all recent price":[
	{"Script":"NABIL","Price":540.5},
	{"Script":"NTC","Price":"1,050.25"},
	{"Script":"","Price":1},
	{"Script":"BAD","Price":"n/a"}
]}`

func TestPriceServiceRefreshReplacesTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)
	require.NoError(t, svc.Refresh(context.Background()))

	price, ok := svc.Lookup("NABIL")
	assert.True(t, ok)
	assert.Equal(t, 540.5, price)

	price, ok = svc.Lookup("NTC")
	assert.True(t, ok)
	assert.Equal(t, 1050.25, price, "grouped string prices parse like any other numeric cell")

	_, ok = svc.Lookup("BAD")
	assert.False(t, ok, "entries with unparseable prices are skipped")
	assert.False(t, svc.LastRefreshed().IsZero())
}

func TestPriceServiceRefreshIsWholesale(t *testing.T) {
	body := `{"all recent price":[{"Script":"OLD","Price":10}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)
	require.NoError(t, svc.Refresh(context.Background()))
	_, ok := svc.Lookup("OLD")
	require.True(t, ok)

	body = `{"all recent price":[{"Script":"NEW","Price":20}]}`
	require.NoError(t, svc.Refresh(context.Background()))

	_, ok = svc.Lookup("OLD")
	assert.False(t, ok, "a successful refresh replaces the whole table, nothing lingers")
	price, ok := svc.Lookup("NEW")
	assert.True(t, ok)
	assert.Equal(t, 20.0, price)
}

func TestPriceServiceFailureKeepsPreviousTable(t *testing.T) {
	failing := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"all recent price":[{"Script":"KEEP","Price":99}]}`))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)
	require.NoError(t, svc.Refresh(context.Background()))
	refreshedAt := svc.LastRefreshed()

	failing = true
	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeedUnavailable)

	price, ok := svc.Lookup("KEEP")
	assert.True(t, ok, "a failed refresh leaves the previous table intact")
	assert.Equal(t, 99.0, price)
	assert.Equal(t, refreshedAt, svc.LastRefreshed())
}

func TestPriceServiceUndecodableBodyKeepsPreviousTable(t *testing.T) {
	body := `{"all recent price":[{"Script":"KEEP","Price":99}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)
	require.NoError(t, svc.Refresh(context.Background()))

	body = `<html>maintenance page</html>`
	err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)

	_, ok := svc.Lookup("KEEP")
	assert.True(t, ok)
}

func TestPriceServiceStaleResponseDiscarded(t *testing.T) {
	var calls int32
	firstRelease := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Hold the first response until a later refresh has landed.
			<-firstRelease
			w.Write([]byte(`{"all recent price":[{"Script":"STALE","Price":1}]}`))
			return
		}
		w.Write([]byte(`{"all recent price":[{"Script":"FRESH","Price":2}]}`))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)

	slow := make(chan error, 1)
	go func() { slow <- svc.Refresh(context.Background()) }()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond, "first refresh never reached the feed")

	// A refresh that started later completes first.
	require.NoError(t, svc.Refresh(context.Background()))

	close(firstRelease)
	require.NoError(t, <-slow)

	_, ok := svc.Lookup("STALE")
	assert.False(t, ok, "the slow earlier response must not overwrite the newer table")
	price, ok := svc.Lookup("FRESH")
	require.True(t, ok)
	assert.Equal(t, 2.0, price)
}

func TestPriceServiceEmptyTableIsValid(t *testing.T) {
	svc := NewPriceService("http://unused.invalid", time.Second)
	_, ok := svc.Lookup("ANY")
	assert.False(t, ok)
	assert.Empty(t, svc.Snapshot())
	assert.True(t, svc.LastRefreshed().IsZero())
}

func TestPriceServiceSnapshotIsACopy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"all recent price":[{"Script":"A","Price":1}]}`))
	}))
	defer server.Close()

	svc := NewPriceService(server.URL, 5*time.Second)
	require.NoError(t, svc.Refresh(context.Background()))

	snap := svc.Snapshot()
	snap["A"] = 999

	price, _ := svc.Lookup("A")
	assert.Equal(t, 1.0, price, "mutating a snapshot never touches the live table")
}
