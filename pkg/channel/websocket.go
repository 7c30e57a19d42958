package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

//Options configure a WebSocket channel
type Options struct {
	//Server is the ws:// or wss:// URL of the messaging gateway
	Server string
	//Importer is the address envelopes are sent to
	Importer string
	//ReplyTimeout bounds Receive; zero waits until the context ends
	ReplyTimeout time.Duration
	DialTimeout  time.Duration
	//MessagesPerSecond limits Send; zero is unlimited
	MessagesPerSecond float64
	Header            http.Header
}

//WebSocket is a Channel over a single gorilla/websocket connection. It is opened once per run
//and is not reconnected.
type WebSocket struct {
	opts    Options
	logger  *zap.SugaredLogger
	conn    *websocket.Conn
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
	//readErr is the first read failure; gorilla connections cannot be read again after one
	readErr error
}

var _ Channel = (*WebSocket)(nil)

//Dial connects to the messaging gateway
func Dial(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*WebSocket, error) {
	if opts.Server == "" {
		return nil, errors.New("no messaging server configured")
	}

	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, opts.Server, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "failed to connect to %s (status %d)", opts.Server, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "failed to connect to %s", opts.Server)
	}

	ws := &WebSocket{
		opts:   opts,
		logger: logger,
		conn:   conn,
	}
	if opts.MessagesPerSecond > 0 {
		ws.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), 1)
	}
	logger.Infow("Connected to messaging server", "server", opts.Server, "importer", opts.Importer)
	return ws, nil
}

func (w *WebSocket) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil && !w.closed
}

func (w *WebSocket) Send(ctx context.Context, payload []byte) error {
	if !w.Active() {
		return ErrClosed
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "send cancelled")
		}
	}

	env := Envelope{
		ID:   uuid.NewString(),
		To:   w.opts.Importer,
		Type: TypeIssue,
		Body: string(payload),
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
	} else {
		_ = w.conn.SetWriteDeadline(time.Time{})
	}
	if err := w.conn.WriteJSON(env); err != nil {
		return errors.Wrapf(err, "failed to send message %s", env.ID)
	}
	w.logger.Debugw("Sent message", "id", env.ID, "to", env.To, "bytes", len(payload))
	return nil
}

//Receive returns the body of the next reply envelope. Envelopes of any other type are skipped and a frame
//that is not an Envelope is returned as is. Once a read has failed, every later Receive returns that failure.
func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	if !w.Active() {
		return nil, ErrClosed
	}
	if err := w.failedRead(); err != nil {
		return nil, err
	}

	deadline := time.Time{}
	if w.opts.ReplyTimeout > 0 {
		deadline = time.Now().Add(w.opts.ReplyTimeout)
	}
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "failed to set reply deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = errors.Wrap(ctx.Err(), "reply wait cancelled")
			} else {
				err = errors.Wrap(err, "failed to read reply")
			}
			w.setReadErr(err)
			return nil, err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			return data, nil
		}
		if env.Type != TypeReply {
			w.logger.Debugw("Skipping message that is not a reply", "id", env.ID, "type", env.Type, "from", env.From)
			continue
		}
		w.logger.Debugw("Received reply", "id", env.ID, "from", env.From)
		return []byte(env.Body), nil
	}
}

func (w *WebSocket) failedRead() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readErr
}

func (w *WebSocket) setReadErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readErr == nil {
		w.readErr = err
	}
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.conn == nil {
		return nil
	}
	w.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "drone run finished")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}
