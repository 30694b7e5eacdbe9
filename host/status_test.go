package host

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inet "github.com/guseggert/interactiveservice/internal/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHandler(t *testing.T) {
	h := newTestHost(t)
	handler := h.StatusHandler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"State":"idle","Connected":false}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get("/nope").Code)

	cfg, _ := shellConfig(t, "sleep 30")
	require.NoError(t, h.Start(cfg))

	var st Status
	require.NoError(t, json.Unmarshal(get("/status").Body.Bytes(), &st))
	assert.Equal(t, "running", st.State)
	assert.NotZero(t, st.PID)
	assert.Equal(t, cfg.listenAddr(), st.Listen)
}

func TestStatusServer(t *testing.T) {
	h := newTestHost(t)
	statusAddr, _ := inet.MustFreeLoopbackAddr(t)
	cfg, _ := shellConfig(t, "sleep 30")
	cfg.StatusAddr = statusAddr
	require.NoError(t, h.Start(cfg))

	url := fmt.Sprintf("http://%s/status", statusAddr)
	var st Status
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(&st) == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "running", st.State)

	h.Stop()
	waitStopped(t, h, 10*time.Second)

	_, err := http.Get(url)
	assert.Error(t, err)
}
