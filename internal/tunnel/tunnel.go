// Package tunnel exposes the terminal's local API port through an ngrok
// tunnel. It runs the ngrok agent as a child process and reads the public
// URL from the agent's local inspection API.
package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// agentAPI is the ngrok agent's local inspection endpoint.
const agentAPI = "http://127.0.0.1:4040/api/tunnels"

// Tunnel is a running ngrok tunnel to a local port.
type Tunnel struct {
	// PublicURL is the address the tunnel is reachable at.
	PublicURL string

	cmd    *exec.Cmd
	client *http.Client
}

// Start launches the ngrok agent for the given local port and waits until
// the agent reports a public URL. An empty authtoken relies on whatever the
// agent already has configured.
func Start(ctx context.Context, port int, authtoken string) (*Tunnel, error) {
	path, err := exec.LookPath("ngrok")
	if err != nil {
		return nil, errors.New("ngrok binary not found; download it from https://ngrok.com/download")
	}

	cmd := exec.CommandContext(ctx, path, "tcp", strconv.Itoa(port))
	if authtoken != "" {
		cmd.Env = append(os.Environ(), "NGROK_AUTHTOKEN="+authtoken)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ngrok agent: %w", err)
	}

	t := &Tunnel{
		cmd:    cmd,
		client: &http.Client{Timeout: 5 * time.Second},
	}
	url, err := t.waitForURL(ctx)
	if err != nil {
		_ = t.Stop()
		return nil, err
	}
	t.PublicURL = url
	return t, nil
}

// waitForURL polls the agent API until a tunnel shows up.
func (t *Tunnel) waitForURL(ctx context.Context) (string, error) {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		if url, err := t.fetchURL(ctx); err == nil && url != "" {
			return url, nil
		}
	}
	return "", errors.New("ngrok agent did not report a tunnel; check the authtoken and agent logs")
}

func (t *Tunnel) fetchURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agentAPI, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent api returned %s", resp.Status)
	}
	var out struct {
		Tunnels []struct {
			PublicURL string `json:"public_url"`
		} `json:"tunnels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Tunnels) == 0 {
		return "", nil
	}
	return out.Tunnels[0].PublicURL, nil
}

// Stop terminates the agent process.
func (t *Tunnel) Stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.cmd.Wait()
	return nil
}
