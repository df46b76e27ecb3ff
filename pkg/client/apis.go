package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/camexpo/pkg/config"
	"github.com/charlie0129/camexpo/pkg/history"
	"github.com/charlie0129/camexpo/pkg/loop"
)

func (c *Client) GetCameras(ctx context.Context) ([]loop.Status, error) {
	ret, err := c.Get(ctx, "/cameras")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get cameras")
	}

	var statuses []loop.Status
	if err := json.Unmarshal([]byte(ret), &statuses); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal cameras")
	}
	return statuses, nil
}

func (c *Client) GetCamera(ctx context.Context, name string) (*loop.Status, error) {
	ret, err := c.Get(ctx, "/cameras/"+url.PathEscape(name))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get camera %s", name)
	}

	var st loop.Status
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal camera %s", name)
	}
	return &st, nil
}

// GetHistory returns up to limit records of a camera, newest first. A
// non-positive limit uses the daemon default.
func (c *Client) GetHistory(ctx context.Context, name string, limit int) ([]*history.Record, error) {
	path := "/cameras/" + url.PathEscape(name) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	ret, err := c.Get(ctx, path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get history of %s", name)
	}

	var records []*history.Record
	if err := json.Unmarshal([]byte(ret), &records); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal history of %s", name)
	}
	return records, nil
}

// Capture asks the daemon to run a cycle for a camera right away.
func (c *Client) Capture(ctx context.Context, name string) (*history.Record, error) {
	ret, err := c.Post(ctx, "/cameras/"+url.PathEscape(name)+"/capture", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to capture %s", name)
	}

	var rec history.Record
	if err := json.Unmarshal([]byte(ret), &rec); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal capture of %s", name)
	}
	return &rec, nil
}

func (c *Client) GetConfig(ctx context.Context) (*config.RawFileConfig, error) {
	ret, err := c.Get(ctx, "/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	ret, err := c.Get(ctx, "/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
