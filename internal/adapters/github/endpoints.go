package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	perr "ghfinder/internal/platform/errors"
)

const defaultPerPage = 100

// User fetches /users/{login}
func (c *Client) User(ctx context.Context, login string) (User, Result, error) {
	return getOne[User](ctx, c, "/users/"+url.PathEscape(login), nil)
}

// UserRepos lists a page of the user's repositories, most recently updated first
func (c *Client) UserRepos(ctx context.Context, login string, page, perPage int) ([]Repo, Result, error) {
	q := pageParams(page, perPage)
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	return getList[Repo](ctx, c, "/users/"+url.PathEscape(login)+"/repos", q)
}

// UserEvents lists a page of the user's public events
func (c *Client) UserEvents(ctx context.Context, login string, page, perPage int) ([]Event, Result, error) {
	return getList[Event](ctx, c, "/users/"+url.PathEscape(login)+"/events", pageParams(page, perPage))
}

// Repo fetches /repos/{owner}/{name}
func (c *Client) Repo(ctx context.Context, fullName string) (Repo, Result, error) {
	return getOne[Repo](ctx, c, "/repos/"+fullName, nil)
}

// RepoPulls lists a page of pull requests
func (c *Client) RepoPulls(ctx context.Context, fullName string, pq PullsQuery) ([]Pull, Result, error) {
	q := pageParams(pq.Page, pq.PerPage)
	if pq.State != "" {
		q.Set("state", pq.State)
	}
	if pq.Sort != "" {
		q.Set("sort", pq.Sort)
	}
	if pq.Direction != "" {
		q.Set("direction", pq.Direction)
	}
	return getList[Pull](ctx, c, "/repos/"+fullName+"/pulls", q)
}

// RepoForks lists a page of forks, newest first
func (c *Client) RepoForks(ctx context.Context, fullName string, page, perPage int) ([]Repo, Result, error) {
	q := pageParams(page, perPage)
	q.Set("sort", "newest")
	return getList[Repo](ctx, c, "/repos/"+fullName+"/forks", q)
}

// RepoLanguages fetches the language byte breakdown for a repo
func (c *Client) RepoLanguages(ctx context.Context, fullName string) (map[string]int64, Result, error) {
	return getOne[map[string]int64](ctx, c, "/repos/"+fullName+"/languages", nil)
}

// RepoContent fetches one file and decodes its base64 payload. Directories
// and symlinks come back with an empty Decoded
func (c *Client) RepoContent(ctx context.Context, fullName, path, ref string) (Content, Result, error) {
	var q url.Values
	if ref != "" {
		q = url.Values{"ref": {ref}}
	}
	p := "/repos/" + fullName + "/contents/" + strings.TrimPrefix(path, "/")
	res, err := c.Request(ctx, p, q)
	if err != nil || !res.OK() {
		return Content{}, res, err
	}
	// a directory listing is an array; only files are useful here
	if trimmed := bytes.TrimSpace(res.Body); len(trimmed) > 0 && trimmed[0] == '[' {
		return Content{Type: "dir"}, res, nil
	}
	var out Content
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return Content{}, res, perr.Wrapf(err, perr.ErrorCodeJSON, "decode content %s", p)
	}
	if out.Type == "file" && out.Encoding == "base64" {
		raw := strings.ReplaceAll(out.Content, "\n", "")
		dec, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return out, res, perr.Wrapf(err, perr.ErrorCodeJSON, "decode content payload %s", p)
		}
		out.Decoded = dec
	}
	return out, res, nil
}

// RateLimit fetches /rate_limit with the current token
func (c *Client) RateLimit(ctx context.Context) (RateLimit, Result, error) {
	return getOne[RateLimit](ctx, c, "/rate_limit", nil)
}

func pageParams(page, perPage int) url.Values {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	return url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
}

// getOne decodes a single document on 200; other statuses return the zero record
func getOne[T any](ctx context.Context, c *Client, path string, q url.Values) (T, Result, error) {
	var out T
	res, err := c.Request(ctx, path, q)
	if err != nil || !res.OK() {
		return out, res, err
	}
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return out, res, perr.Wrapf(err, perr.ErrorCodeJSON, "decode %s", path)
	}
	return out, res, nil
}

// getList decodes an array item by item; items that fail to decode are skipped
func getList[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, Result, error) {
	res, err := c.Request(ctx, path, q)
	if err != nil || !res.OK() {
		return nil, res, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(res.Body, &raws); err != nil {
		return nil, res, perr.Wrapf(err, perr.ErrorCodeJSON, "decode %s", path)
	}
	res.Items = len(raws)
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			c.log.Debug().Err(err).Str("path", path).Int("index", i).Msg("github skipping undecodable item")
			continue
		}
		out = append(out, v)
	}
	return out, res, nil
}
