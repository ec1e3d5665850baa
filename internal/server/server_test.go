package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

var testNow = time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)

type capture struct{ events []event.DomainEvent }

func (c *capture) Publish(_ context.Context, evt event.DomainEvent) {
	c.events = append(c.events, evt)
}

func TestRouter_Health(t *testing.T) {
	cfg := Config{Store: records.NewMemoryStore()}
	router := NewRouter(cfg, NewServices(cfg))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SnapshotUpdatePushesToFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := records.NewMemoryStore()
	require.NoError(t, records.SeedDemoData(ctx, store, time.Now()))
	cfg := Config{Store: store}
	svc := NewServices(cfg)
	svc.Bus.Start(ctx)
	defer svc.Bus.Stop()

	srv := httptest.NewServer(NewRouter(cfg, svc))
	defer srv.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/portfolios/" + records.DemoPortfolioID + "/feed"
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	type message struct {
		Type string `json:"type"`
		Data struct {
			Headline struct {
				Tenants int `json:"tenants"`
			} `json:"headline"`
		} `json:"data"`
	}
	var first message
	require.NoError(t, wsjson.Read(dialCtx, conn, &first))
	assert.Equal(t, "dashboard", first.Type)
	assert.Equal(t, 6, first.Data.Headline.Tenants)

	snap := records.DemoSnapshot(time.Now())
	snap.Tenants = snap.Tenants[:3]
	body, err := json.Marshal(snap)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/portfolios/"+records.DemoPortfolioID+"/snapshot", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second message
	require.NoError(t, wsjson.Read(dialCtx, conn, &second))
	assert.Equal(t, 3, second.Data.Headline.Tenants)
}

func TestDigest_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemoryStore()
	require.NoError(t, records.SeedDemoData(ctx, store, testNow))
	_, err := store.Put(ctx, "empty", types.Snapshot{})
	require.NoError(t, err)

	bus := &capture{}
	cfg := Config{Store: store}
	d := NewDigest(store, NewServices(cfg).Builder, bus, nil)
	d.now = func() time.Time { return testNow }

	out, err := d.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, bus.events, 2)

	// List is sorted: "demo" before "empty".
	demo := out[0]
	assert.Equal(t, 5, demo.OverdueTenants)
	assert.Equal(t, "KES 108,000", demo.OverdueAmount)
	assert.Equal(t, 1, demo.ByEscalation["final"])
	assert.Len(t, demo.ByEscalation, len(types.Escalations))
	assert.Equal(t, event.DigestCompleted, bus.events[0].EventType)
	assert.Equal(t, records.DemoPortfolioID, bus.events[0].PortfolioID)

	assert.Equal(t, 0, out[1].OverdueTenants)
}

func TestDigest_Schedule(t *testing.T) {
	d := NewDigest(records.NewMemoryStore(), NewServices(Config{Store: records.NewMemoryStore()}).Builder, &capture{}, nil)
	assert.Error(t, d.Start(context.Background(), "every morning"))

	assert.NoError(t, d.Start(context.Background(), ""))
	assert.NoError(t, d.Start(context.Background(), "0 7 * * *"))
	d.Stop()
}
