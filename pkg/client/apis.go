package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/fastcharge"
	"github.com/fastchg/fastchg/pkg/policy"
)

func attributePath(name string) string {
	return "/attributes/" + url.PathEscape(name)
}

// ReadAttribute returns the rendered value of the named attribute.
func (c *Client) ReadAttribute(name string) (string, error) {
	ret, err := c.Get(attributePath(name))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to read %s", name)
	}
	return ret, nil
}

// WriteAttribute writes value to the named attribute and returns the number
// of bytes the daemon acknowledged. The daemon acknowledges rejected values
// too; read the attribute back to see what was applied.
func (c *Client) WriteAttribute(name, value string) (int, error) {
	ret, err := c.Put(attributePath(name), value)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to write %s", name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(ret))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to parse acknowledged byte count")
	}
	return n, nil
}

func (c *Client) ListAttributes() (*fastcharge.Listing, error) {
	ret, err := c.Get("/attributes")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list attributes")
	}

	var l fastcharge.Listing
	if err := json.Unmarshal([]byte(ret), &l); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal attribute list")
	}
	return &l, nil
}

func (c *Client) GetPolicy() (*policy.Snapshot, error) {
	ret, err := c.Get("/policy")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get policy")
	}

	var s policy.Snapshot
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal policy")
	}
	return &s, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetBatteryInfo() (*battery.Battery, error) {
	ret, err := c.Get("/battery-info")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery info")
	}

	var bat battery.Battery
	if err := json.Unmarshal([]byte(ret), &bat); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery info")
	}

	return &bat, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

// SubscribeEvents streams daemon events until ctx is cancelled or the
// connection drops. The returned channel is closed when the stream ends.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/events", "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to subscribe to events")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, pkgerrors.Errorf("failed to subscribe to events: got %d", resp.StatusCode)
	}

	ch := make(chan events.Event)
	go func() {
		defer close(ch)
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logrus.Debugf("failed to close event stream: %v", err)
			}
		}()

		sc := bufio.NewScanner(resp.Body)
		var ev events.Event
		var data []string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case line == "":
				if ev.Name == "" && len(data) == 0 {
					continue
				}
				ev.Data = json.RawMessage(strings.Join(data, "\n"))
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				ev, data = events.Event{}, nil
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			logrus.Warnf("event stream ended: %v", err)
		}
	}()

	return ch, nil
}
