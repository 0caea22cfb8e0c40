package devtools_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/delaneyj/watchparty/devtools"
	"github.com/delaneyj/watchparty/metrics"
	"github.com/delaneyj/watchparty/observer"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	t.Run("broadcasts flushes to websocket clients", func(t *testing.T) {
		hub := devtools.New()
		srv := httptest.NewServer(hub.Router())
		defer srv.Close()
		defer hub.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

		hub.OnFlush(observer.FlushInfo{
			Started: time.Now(),
			Runs:    map[string]int{"render": 2},
			Updated: 2,
		})

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg devtools.FlushMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, uint64(1), msg.Seq)
		assert.Equal(t, 2, msg.Runs["render"])
		assert.Equal(t, 2, msg.Updated)
	})

	t.Run("concurrent flushes share a client", func(t *testing.T) {
		//   runtime A ──┐
		//               ├──► hub ──► one ws client
		//   runtime B ──┘
		hub := devtools.New()
		srv := httptest.NewServer(hub.Router())
		defer srv.Close()
		defer hub.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

		const perWriter = 200
		var wg sync.WaitGroup
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					hub.OnFlush(observer.FlushInfo{Started: time.Now(), Runs: map[string]int{"user": 1}})
				}
			}()
		}

		seen := map[uint64]bool{}
		for len(seen) < 2*perWriter {
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			var msg devtools.FlushMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.False(t, seen[msg.Seq], "seq %d delivered twice", msg.Seq)
			seen[msg.Seq] = true
		}
		wg.Wait()
		assert.Equal(t, 1, hub.ClientCount())
	})

	t.Run("history is bounded", func(t *testing.T) {
		hub := devtools.New(devtools.WithHistory(2))
		for i := 0; i < 5; i++ {
			hub.OnFlush(observer.FlushInfo{
				Started:  time.Now(),
				Duration: time.Millisecond,
				Runs:     map[string]int{"user": 1000},
			})
		}
		h := hub.History()
		require.Len(t, h, 2)
		assert.Equal(t, uint64(4), h[0].Seq)
		assert.Equal(t, uint64(5), h[1].Seq)

		s := hub.Summary()
		assert.Equal(t, uint64(5), s.Flushes)
		assert.Equal(t, "2,000", s.TotalRuns)
		assert.Equal(t, "1ms", s.AvgDuration)
	})

	t.Run("serves flushes from a runtime", func(t *testing.T) {
		hub := devtools.New()
		rt := observer.NewRuntime(observer.WithFlushHook(hub))
		data := observer.ObjectOf("n", 0)
		rt.Observe(data, false)
		rt.NewWatcher(nil, func() any { return data.Get("n") }, func(_, _ any) error { return nil }, &observer.WatcherOptions{User: true})
		data.Put("n", 1)
		require.NoError(t, rt.Tick())

		srv := httptest.NewServer(hub.Router())
		defer srv.Close()
		res, err := http.Get(srv.URL + "/flushes")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

		var body struct {
			Summary devtools.Summary       `json:"summary"`
			Flushes []devtools.FlushMessage `json:"flushes"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		require.Len(t, body.Flushes, 1)
		assert.Equal(t, 1, body.Flushes[0].Runs["user"])
		assert.Equal(t, 1, body.Summary.Runs["user"])
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		collector := metrics.New(metrics.WithRegistry(reg))
		collector.OnFlush(observer.FlushInfo{Runs: map[string]int{"render": 1}})

		srv := httptest.NewServer(devtools.New(devtools.WithGatherer(reg)).Router())
		defer srv.Close()
		res, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "watchparty_scheduler_flushes_total 1")

		bare := httptest.NewServer(devtools.New().Router())
		defer bare.Close()
		res404, err := http.Get(bare.URL + "/metrics")
		require.NoError(t, err)
		res404.Body.Close()
		assert.Equal(t, http.StatusNotFound, res404.StatusCode)
	})
}
