package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tg := NewTelegram(srv.URL, "TOKEN", "-100500", zap.NewNop())
	tg.client.RetryWaitMin = time.Millisecond
	tg.client.RetryWaitMax = 5 * time.Millisecond
	return tg
}

func TestSend(t *testing.T) {
	var got map[string]string

	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, map[string]string{"chat_id": "-100500", "text": "hello"}, got)
}

func TestSendRejected(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	})

	err := tg.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32

	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestNotifyIsAsync(t *testing.T) {
	var received atomic.Int32
	release := make(chan struct{})

	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		received.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	tg.Notify("first")
	tg.Notify("second")
	assert.Zero(t, received.Load())

	close(release)
	tg.Wait()
	assert.Equal(t, int32(2), received.Load())
}

func TestNewWithoutTokenIsNoop(t *testing.T) {
	assert.IsType(t, Noop{}, New("", "", "1", nil))
	assert.IsType(t, Noop{}, New("", "token", "", nil))
	assert.IsType(t, &Telegram{}, New("", "token", "1", nil))

	Noop{}.Notify("ignored")
}
