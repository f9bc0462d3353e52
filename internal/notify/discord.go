package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embed colors per event type, matching the run outcome at a glance.
const (
	colorExecuted = 0x2ECC71 // green
	colorSkipped  = 0x95A5A6 // grey
	colorRejected = 0xE67E22 // orange
	colorError    = 0xE74C3C // red
	colorArchive  = 0x3498DB // blue
)

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordSender delivers allocation outcomes to a Discord webhook as embeds:
// the run status picks the embed color and the result fields (action, order,
// slippage, reason) become embed fields.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses
// a default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to the Discord webhook as a single embed.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	embed := discordEmbed{
		Title: msg.Title,
		Color: eventColor(msg.Event),
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, discordField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

func eventColor(event string) int {
	switch event {
	case EventAllocationExecuted:
		return colorExecuted
	case EventAllocationSkipped:
		return colorSkipped
	case EventAllocationRejected:
		return colorRejected
	case EventArchiveCompleted:
		return colorArchive
	default:
		return colorError
	}
}
