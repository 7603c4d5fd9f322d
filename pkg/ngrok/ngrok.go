package ngrok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// BinPath is the path to the ngrok binary
var BinPath = "ngrok"

// APIURL is the local inspection api of the ngrok agent
var APIURL = "http://localhost:4040"

type tunnelsResponse struct {
	Tunnels []struct {
		Name      string `json:"name"`
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
		Config    struct {
			Addr string `json:"addr"`
		} `json:"config"`
	} `json:"tunnels"`
}

// Run exposes a local http port and returns its public https url. The
// tunnel is closed when the returned cancel function is called.
func Run(ctx context.Context, port string, timeout time.Duration) (string, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		cmd := exec.CommandContext(ctx, BinPath, "http", port)
		data, err := cmd.CombinedOutput()
		if err != nil && ctx.Err() == nil {
			log.Println(fmt.Errorf("ngrok: %w: %s", err, string(data)))
		}
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	deadline := time.Now().Add(timeout)
	for {
		u, err := lookup(ctx, client, port)
		if err == nil && u != "" {
			return u, cancel, nil
		}
		if time.Now().After(deadline) {
			cancel()
			if err == nil {
				err = fmt.Errorf("tunnel for port %s not found", port)
			}
			return "", nil, fmt.Errorf("ngrok: couldn't start: %w", err)
		}
		select {
		case <-ctx.Done():
			cancel()
			return "", nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func lookup(ctx context.Context, client *http.Client, port string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, APIURL+"/api/tunnels", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("couldn't read response: %w", err)
	}
	var tr tunnelsResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("couldn't unmarshal response (%s): %w", string(data), err)
	}
	for _, t := range tr.Tunnels {
		addr := strings.TrimPrefix(strings.TrimPrefix(t.Config.Addr, "http://"), "https://")
		_, p, err := net.SplitHostPort(addr)
		if err != nil {
			p = addr
		}
		if p != port || t.Proto != "https" {
			continue
		}
		return t.PublicURL, nil
	}
	return "", nil
}
