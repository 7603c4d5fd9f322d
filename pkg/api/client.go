package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/igolaizola/lightshow/pkg/show"
)

type Config struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
	Client   *http.Client
}

// Client reads the datastore through the http api. It implements
// show.Datastore.
type Client struct {
	base     string
	user     string
	password string
	client   *http.Client
}

func NewClient(cfg *Config) *Client {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:     strings.TrimSuffix(cfg.URL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		client:   client,
	}
}

func (c *Client) Project(ctx context.Context, id string) (*show.Project, error) {
	var v show.Project
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%s", url.PathEscape(id)), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Sections(ctx context.Context, projectID string) ([]*show.Section, error) {
	var vs []*show.Section
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%s/sections", url.PathEscape(projectID)), &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Client) Songs(ctx context.Context, projectID string) ([]*show.Song, error) {
	var vs []*show.Song
	if err := c.get(ctx, fmt.Sprintf("/api/projects/%s/songs", url.PathEscape(projectID)), &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Client) Sequence(ctx context.Context, songID, sectionID string) (*show.Sequence, error) {
	var v show.Sequence
	path := fmt.Sprintf("/api/songs/%s/sections/%s/sequence", url.PathEscape(songID), url.PathEscape(sectionID))
	if err := c.get(ctx, path, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("api: couldn't create request %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api: couldn't get %s: %w", u, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: couldn't read %s: %w", u, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("api: %s: %w", u, show.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api: %s returned %s: %s", u, resp.Status, string(b))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("api: couldn't unmarshal %s: %w", u, err)
	}
	return nil
}
