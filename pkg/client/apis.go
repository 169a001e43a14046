package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/events"
	"github.com/charlie0129/apportion/pkg/types"
)

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal daemon version")
	}
	return v, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	return getJSON[config.RawFileConfig](c, "/config", "config")
}

func (c *Client) ListAllocations() ([]*allocation.Allocation, error) {
	ret, err := getJSON[[]*allocation.Allocation](c, "/allocations", "allocations")
	if err != nil {
		return nil, err
	}
	return *ret, nil
}

func (c *Client) GetAllocation(id string) (*allocation.Allocation, error) {
	return getJSON[allocation.Allocation](c, "/allocations/"+id, "allocation")
}

func (c *Client) CreateAllocation(name string, labels []string, percents []float64) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPost, "/allocations", types.CreateRequest{
		Name:     name,
		Labels:   labels,
		Percents: percents,
	})
}

func (c *Client) DeleteAllocation(id string) error {
	_, err := c.Delete("/allocations/" + id)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to delete allocation %s", id)
	}
	return nil
}

func (c *Client) Shift(id string, index int, magnitude float64) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/shift", types.ShiftRequest{Index: index, Magnitude: magnitude})
}

func (c *Client) Increment(id string, index int) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/increment", types.IndexRequest{Index: index})
}

func (c *Client) Decrement(id string, index int) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/decrement", types.IndexRequest{Index: index})
}

func (c *Client) Edit(id string, index int, text string) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/edit", types.EditRequest{Index: index, Text: text})
}

func (c *Client) RemoveItem(id string, index int) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/remove", types.IndexRequest{Index: index})
}

func (c *Client) Reset(id string, force bool) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/reset", types.ForceRequest{Force: force})
}

func (c *Client) Recalibrate(id string, force bool) (*allocation.Result, error) {
	return sendJSON[allocation.Result](c, http.MethodPut, "/allocations/"+id+"/recalibrate", types.ForceRequest{Force: force})
}

func (c *Client) GetSchedule() (*types.ScheduleStatus, error) {
	return getJSON[types.ScheduleStatus](c, "/schedule", "schedule")
}

// SetSchedule sets the drift recalibration cron expression. An empty
// expression disables periodic recalibration.
func (c *Client) SetSchedule(expr string) (*types.ScheduleStatus, error) {
	return sendJSON[types.ScheduleStatus](c, http.MethodPut, "/schedule", types.ScheduleRequest{Expr: expr})
}

// SkipSchedule skips the next scheduled recalibration.
func (c *Client) SkipSchedule() (*types.ScheduleStatus, error) {
	return sendJSON[types.ScheduleStatus](c, http.MethodPut, "/schedule/skip", struct{}{})
}

// Watch streams change events to fn until ctx is done or the daemon ends the
// stream. An error returned by fn stops Watch and is returned as is.
func (c *Client) Watch(ctx context.Context, fn func(events.Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Debugf("failed to close event stream: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("got %d: %s", resp.StatusCode, errorMessage(b))
	}

	err = readEvents(resp.Body, fn)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a server-sent event stream. Only the event and data
// fields are used.
func readEvents(r io.Reader, fn func(events.Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var (
		ev   events.Event
		data []byte
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				ev.Data = json.RawMessage(data)
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data = events.Event{}, nil
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}
	if err := sc.Err(); err != nil {
		return pkgerrors.Wrap(err, "failed to read event stream")
	}
	return nil
}

func getJSON[T any](c *Client, path string, what string) (*T, error) {
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func sendJSON[T any](c *Client, method string, path string, body any) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	ret, err := c.Send(method, path, string(payload))
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal response of %s %s", method, path)
	}
	return &v, nil
}
