package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yuzuki/roomgrab/config"
)

// RemoteClient talks to the download manager's device API over an
// authenticated session. Connect performs the full login and device lookup;
// Reconnect refreshes the session token and falls back to a full Connect
// when the refresh itself is rejected.
type RemoteClient struct {
	http     *resty.Client
	cfg      config.RemoteAPIConfig
	token    string
	deviceID string
}

type connectResponse struct {
	Token string `json:"token"`
}

type deviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewRemoteClient(cfg config.RemoteAPIConfig) *RemoteClient {
	return &RemoteClient{
		http: resty.New().SetBaseURL(cfg.Endpoint).SetTimeout(30 * time.Second),
		cfg:  cfg,
	}
}

// Connect authenticates and resolves the configured device name to its id.
func (c *RemoteClient) Connect(ctx context.Context) error {
	var out connectResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"email":    c.cfg.Username,
			"password": c.cfg.Password,
			"appKey":   c.cfg.AppKey,
		}).
		SetResult(&out).
		Post("/my/connect")
	if err != nil {
		return fmt.Errorf("remote-api: connect: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("remote-api: connect rejected: %s", resp.Status())
	}
	c.token = out.Token
	c.http.SetAuthToken(c.token)

	var devices []deviceInfo
	resp, err = c.http.R().SetContext(ctx).SetResult(&devices).Get("/my/devices")
	if err != nil {
		return fmt.Errorf("remote-api: list devices: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("remote-api: list devices: %s", resp.Status())
	}
	for _, d := range devices {
		if d.Name == c.cfg.Device {
			c.deviceID = d.ID
			return nil
		}
	}
	return fmt.Errorf("remote-api: device %q not found", c.cfg.Device)
}

// Reconnect refreshes the session token without a full login. If the
// refresh is rejected it restarts the session with Connect.
func (c *RemoteClient) Reconnect(ctx context.Context) error {
	var out connectResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Post("/my/reconnect")
	if err != nil || resp.IsError() {
		return c.Connect(ctx)
	}
	c.token = out.Token
	c.http.SetAuthToken(c.token)
	return nil
}

// AddLink queues a link on the device's link grabber with autostart on.
func (c *RemoteClient) AddLink(ctx context.Context, url, packageName string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"links":       url,
			"packageName": packageName,
			"autostart":   true,
		}).
		Post("/device/" + c.deviceID + "/linkgrabber/addLinks")
	if err != nil {
		return fmt.Errorf("remote-api: add link: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("remote-api: add link rejected: %s", resp.Status())
	}
	return nil
}
