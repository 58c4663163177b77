package roomapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// Options configures a room session. Either Password (room password) or Key
// (room key) may be set, not both; AccountPassword additionally logs the
// nick in as a registered account before joining.
type Options struct {
	BaseURL         string
	Room            string
	Nick            string
	Password        string
	Key             string
	AccountPassword string

	// TickInterval is how often a TimeEvent is synthesized while listening.
	// Zero means the 30 second default.
	TickInterval time.Duration

	HandshakeTimeout time.Duration
}

// Client is the websocket implementation of Session.
type Client struct {
	opts      Options
	rest      *resty.Client
	conn      *websocket.Conn
	events    chan Event
	connected atomic.Bool
	closeOnce sync.Once
}

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireFile struct {
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Uploader string `json:"uploader"`
	FileType string `json:"filetype"`
	Expires  int64  `json:"expires"`
}

type wireChat struct {
	Nick    string `json:"nick"`
	Text    string `json:"text"`
	Admin   bool   `json:"admin"`
	Owner   bool   `json:"owner"`
	Janitor bool   `json:"janitor"`
	Staff   bool   `json:"staff"`
	System  bool   `json:"system"`
}

// Dial joins a room. Account login, when requested, happens before the
// socket is opened so the session cookies ride along on the handshake.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Room == "" {
		return nil, fmt.Errorf("roomapi: room name is empty")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 15 * time.Second
	}

	c := &Client{
		opts:   opts,
		rest:   resty.New().SetBaseURL(opts.BaseURL).SetTimeout(30 * time.Second),
		events: make(chan Event, 64),
	}

	if opts.AccountPassword != "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	conn, err := c.dialSocket(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.connected.Store(true)
	return c, nil
}

// login authenticates the nick as a registered account. The returned session
// cookies are kept on the REST client and replayed on the socket handshake.
func (c *Client) login(ctx context.Context) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": c.opts.Nick, "password": c.opts.AccountPassword}).
		Post("/api/login")
	if err != nil {
		return fmt.Errorf("roomapi: login request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: login rejected for %q: %s", ErrAuthFailed, c.opts.Nick, resp.Status())
	}
	c.rest.SetCookies(resp.Cookies())
	return nil
}

func (c *Client) dialSocket(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("roomapi: bad base url %q: %w", c.opts.BaseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/api/rooms/" + c.opts.Room + "/ws"
	q := u.Query()
	q.Set("nick", c.opts.Nick)
	if c.opts.Password != "" {
		q.Set("password", c.opts.Password)
	}
	if c.opts.Key != "" {
		q.Set("key", c.opts.Key)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	for _, ck := range c.rest.Cookies {
		header.Add("Cookie", ck.String())
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: room %q refused the connection: %s", ErrAuthFailed, c.opts.Room, resp.Status)
		}
		return nil, fmt.Errorf("roomapi: dial %s: %w", u.Host, err)
	}
	return conn, nil
}

func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Listen reads frames until the session ends. Time ticks are synthesized
// locally so maintenance keeps running on a silent room.
func (c *Client) Listen(ctx context.Context) error {
	defer close(c.events)
	defer c.connected.Store(false)

	// done releases the read goroutine from a pending frame send once
	// Listen returns; without it a frame arriving during teardown would
	// strand the goroutine for the life of the process.
	done := make(chan struct{})
	defer close(done)

	frames := make(chan wireFrame)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, payload, err := c.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var frame wireFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				continue
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case <-ticker.C:
			c.emit(ctx, TimeEvent{At: time.Now()})
		case err := <-readErr:
			return classifyReadError(err)
		case frame := <-frames:
			ev, ok := decodeFrame(frame, c.opts.Room)
			if !ok {
				continue
			}
			c.emit(ctx, ev)
		}
	}
}

func (c *Client) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func decodeFrame(frame wireFrame, room string) (Event, bool) {
	switch frame.Type {
	case "file":
		var wf wireFile
		if err := json.Unmarshal(frame.Data, &wf); err != nil {
			return nil, false
		}
		return fileEventFromWire(wf, room), true
	case "chat":
		var wc wireChat
		if err := json.Unmarshal(frame.Data, &wc); err != nil {
			return nil, false
		}
		return ChatEvent(wc), true
	case "time":
		return TimeEvent{At: time.Now()}, true
	}
	return nil, false
}

func fileEventFromWire(wf wireFile, room string) FileEvent {
	return FileEvent{
		URL:      wf.URL,
		Name:     FileName(wf.URL),
		Size:     wf.Size,
		Uploader: wf.Uploader,
		FileType: wf.FileType,
		Room:     room,
		Expires:  time.Unix(wf.Expires, 0),
	}
}

// classifyReadError maps the narrow class of expected transport failures to
// ErrConnectionLost. Everything else is surfaced untouched.
func classifyReadError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return err
}

// Files fetches the room's current file listing over the REST surface.
func (c *Client) Files(ctx context.Context) ([]FileEvent, error) {
	var listing []wireFile
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&listing).
		Get("/api/rooms/" + c.opts.Room + "/files")
	if err != nil {
		return nil, fmt.Errorf("roomapi: list files: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("roomapi: list files: %s", resp.Status())
	}
	files := make([]FileEvent, 0, len(listing))
	for _, wf := range listing {
		files = append(files, fileEventFromWire(wf, c.opts.Room))
	}
	return files, nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		if c.conn != nil {
			deadline := time.Now().Add(time.Second)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			err = c.conn.Close()
		}
	})
	return err
}
