package ws

import (
	"context"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/registry"
)

func TestHandler_NeverJoinedConnection_ReleasesWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg := registry.New(ctx, clockwork.NewRealClock(), zap.NewNop())
	srv := httptest.NewServer(Handler(reg, zap.NewNop()))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	before := runtime.NumGoroutine()

	// Connections that only probe a bad code and hang up must not pin
	// their writer goroutines.
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		require.NoError(t, err)
		err = conn.Write(ctx, websocket.MessageText,
			[]byte(`{"type":"join-session","code":"ZZZZ","nickname":"probe"}`))
		require.NoError(t, err)
		conn.Close(websocket.StatusNormalClosure, "done")
	}

	// Handlers wind down asynchronously; poll instead of sleeping once.
	deadline := time.After(5 * time.Second)
	for {
		// A couple of goroutines of slack for the http server's own
		// connection handling.
		if runtime.NumGoroutine() <= before+3 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("goroutines before=%d after=%d; writer goroutines leaked",
				before, runtime.NumGoroutine())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
