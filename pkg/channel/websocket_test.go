package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// importer answers every envelope according to reply; a nil reply keeps it silent
func importer(t *testing.T, received chan<- Envelope, reply func(Envelope) interface{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if received != nil {
				received <- env
			}
			if reply == nil {
				continue
			}
			switch answer := reply(env).(type) {
			case nil:
			case string:
				_ = conn.WriteMessage(websocket.TextMessage, []byte(answer))
			default:
				_ = conn.WriteJSON(answer)
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server, opts Options) *WebSocket {
	t.Helper()
	opts.Server = wsURL(srv)
	ws, err := Dial(context.Background(), opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestSendAndReceive(t *testing.T) {
	received := make(chan Envelope, 4)
	srv := importer(t, received, func(env Envelope) interface{} {
		verdict := "[OK]"
		if strings.Contains(env.Body, "bad") {
			verdict = "[ERROR] rejected"
		}
		return Envelope{ID: env.ID, From: env.To, Type: TypeReply, Body: verdict + " " + env.ID}
	})
	defer srv.Close()

	ws := dial(t, srv, Options{Importer: "validator@conviso.com.br", ReplyTimeout: 5 * time.Second})
	assert.True(t, ws.Active())

	ctx := context.Background()
	require.NoError(t, ws.Send(ctx, []byte("<scan>good</scan>")))
	env := <-received
	assert.Equal(t, "validator@conviso.com.br", env.To)
	assert.Equal(t, TypeIssue, env.Type)
	assert.Equal(t, "<scan>good</scan>", env.Body)
	assert.NotEmpty(t, env.ID)

	reply, err := ws.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[OK] "+env.ID, string(reply))

	require.NoError(t, ws.Send(ctx, []byte("<scan>bad</scan>")))
	<-received
	reply, err = ws.Receive(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(reply), "[ERROR]"))
}

func TestReceiveRawReply(t *testing.T) {
	srv := importer(t, nil, func(Envelope) interface{} { return "plain [OK]" })
	defer srv.Close()

	ws := dial(t, srv, Options{ReplyTimeout: 5 * time.Second})
	require.NoError(t, ws.Send(context.Background(), []byte("x")))
	reply, err := ws.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain [OK]", string(reply))
}

func TestReceiveTimesOut(t *testing.T) {
	srv := importer(t, nil, nil)
	defer srv.Close()

	ws := dial(t, srv, Options{ReplyTimeout: 50 * time.Millisecond})
	require.NoError(t, ws.Send(context.Background(), []byte("x")))
	_, err := ws.Receive(context.Background())
	assert.Error(t, err)
}

func TestReceiveAfterFailedReadDoesNotReadAgain(t *testing.T) {
	srv := importer(t, nil, nil)
	defer srv.Close()

	ws := dial(t, srv, Options{ReplyTimeout: 5 * time.Millisecond})
	ctx := context.Background()

	_, first := ws.Receive(ctx)
	require.Error(t, first)

	//gorilla panics after 1000 reads of a failed connection
	for i := 0; i < 1100; i++ {
		require.NoError(t, ws.Send(ctx, []byte("x")))
		_, err := ws.Receive(ctx)
		require.Error(t, err)
		assert.Equal(t, first.Error(), err.Error())
	}
	assert.True(t, ws.Active())
}

func TestReceiveSkipsEnvelopesThatAreNotReplies(t *testing.T) {
	srv := importer(t, nil, func(env Envelope) interface{} {
		if env.Body == "first" {
			return Envelope{ID: "presence", Type: TypeIssue, Body: "[OK] not a verdict"}
		}
		return Envelope{ID: env.ID, Type: TypeReply, Body: "[ERROR] rejected"}
	})
	defer srv.Close()

	ws := dial(t, srv, Options{ReplyTimeout: 5 * time.Second})
	ctx := context.Background()
	require.NoError(t, ws.Send(ctx, []byte("first")))
	require.NoError(t, ws.Send(ctx, []byte("second")))

	reply, err := ws.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[ERROR] rejected", string(reply))
}

func TestReceiveHonoursContext(t *testing.T) {
	srv := importer(t, nil, nil)
	defer srv.Close()

	ws := dial(t, srv, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ws.Receive(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClose(t *testing.T) {
	srv := importer(t, nil, nil)
	defer srv.Close()

	ws := dial(t, srv, Options{})
	require.NoError(t, ws.Close())
	assert.False(t, ws.Active())
	assert.NoError(t, ws.Close())

	assert.True(t, errors.Is(ws.Send(context.Background(), []byte("x")), ErrClosed))
	_, err := ws.Receive(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestRateLimitedSendCancelled(t *testing.T) {
	srv := importer(t, nil, nil)
	defer srv.Close()

	ws := dial(t, srv, Options{MessagesPerSecond: 0.001})
	require.NoError(t, ws.Send(context.Background(), []byte("first uses the burst")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, ws.Send(ctx, []byte("second waits")))
}

func TestDialFailures(t *testing.T) {
	_, err := Dial(context.Background(), Options{}, zap.NewNop().Sugar())
	assert.Error(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = Dial(context.Background(), Options{Server: wsURL(srv), DialTimeout: time.Second}, zap.NewNop().Sugar())
	assert.Error(t, err)
}
