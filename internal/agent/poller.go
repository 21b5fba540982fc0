package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-relay-service/internal/relay"
)

const pollRequestTimeout = 10 * time.Second

// runPolling is the degraded transport: the transcript is pushed with
// POST /set-chat and commands are drained from GET /queued-messages.
// The relay's backlog drain is destructive, so this client must be the
// relay's only poller.
func (c *Client) runPolling(ctx context.Context) error {
	httpClient := &http.Client{Timeout: pollRequestTimeout}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.pollOnce(ctx, httpClient)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, httpClient *http.Client) {
	if err := c.pushTranscript(ctx, httpClient); err != nil {
		c.log.Warn().Err(err).Msg("Transcript push failed")
	}
	if err := c.drainCommands(ctx, httpClient); err != nil {
		c.log.Warn().Err(err).Msg("Command drain failed")
	}
}

func (c *Client) pushTranscript(ctx context.Context, httpClient *http.Client) error {
	payload, changed, err := c.transcriptIfChanged()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/set-chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("set-chat returned status %d", resp.StatusCode)
	}

	c.markPushed(payload)
	return nil
}

func (c *Client) drainCommands(ctx context.Context, httpClient *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.relayURL+"/queued-messages", nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("queued-messages returned status %d", resp.StatusCode)
	}

	var queued []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return err
	}

	for _, raw := range queued {
		cmd, err := relay.ParseCommand(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("Malformed queued command, ignoring")
			continue
		}
		c.executor.Enqueue(cmd)
	}
	return nil
}
