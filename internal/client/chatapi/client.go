// Package chatapi is the REST side of the chat contract: history loading,
// room listing, and the edit/delete fallbacks used when no live socket is
// available.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/s21platform/chat-client/internal/creds"
	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/pkg/apperr"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	creds      creds.Provider
	httpClient *http.Client
}

func New(baseURL string, provider creds.Provider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   provider,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// HistoryOptions bounds a history fetch. Before is an opaque cursor
// (message id or timestamp) passed through to the server.
type HistoryOptions struct {
	Limit  int
	Before string
}

// RecentMessages performs exactly one request and normalizes the three
// accepted envelope shapes (bare array, {data:[...]}, {items:[...]}) into
// one ordered list. Anything else is a malformed-response FetchError.
func (c *Client) RecentMessages(ctx context.Context, roomID string, opts HistoryOptions) (model.MessageList, error) {
	endpoint := fmt.Sprintf("%s/rooms/%s/messages", c.baseURL, url.PathEscape(roomID))

	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Before != "" {
		query.Set("before", opts.Before)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	messages, err := normalizeHistory(body)
	if err != nil {
		return nil, &apperr.FetchError{URL: endpoint, Reason: "malformed response"}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

func normalizeHistory(body []byte) (model.MessageList, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var messages model.MessageList
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, err
		}
		return messages, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}

	for _, key := range []string{"data", "items"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var messages model.MessageList
		if err := json.Unmarshal(raw, &messages); err != nil {
			return nil, err
		}
		return messages, nil
	}

	return nil, fmt.Errorf("no known envelope key")
}

// Rooms fetches the room summary list. Both a bare array and a mapping of
// id to summary are accepted.
func (c *Client) Rooms(ctx context.Context) (model.RoomList, error) {
	endpoint := c.baseURL + "/rooms"

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rooms model.RoomList
		if err := json.Unmarshal(trimmed, &rooms); err != nil {
			return nil, &apperr.FetchError{URL: endpoint, Reason: "malformed response"}
		}
		return rooms, nil
	}

	var byID map[string]model.Room
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, &apperr.FetchError{URL: endpoint, Reason: "malformed response"}
	}

	rooms := make(model.RoomList, 0, len(byID))
	for id, room := range byID {
		if room.ID == "" {
			room.ID = id
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	return rooms, nil
}

// CreateDirectRoom asks the server for a one-to-one room with the given
// participant, creating it if needed.
func (c *Client) CreateDirectRoom(ctx context.Context, participantUID string) (*model.Room, error) {
	endpoint := c.baseURL + "/rooms/direct"

	payload, err := json.Marshal(map[string]string{"participantUid": participantUID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(body, &room); err != nil {
		return nil, &apperr.FetchError{URL: endpoint, Reason: "malformed response"}
	}

	return &room, nil
}

// EditMessage is the REST fallback for message:edit.
func (c *Client) EditMessage(ctx context.Context, messageID, text string) error {
	endpoint := fmt.Sprintf("%s/messages/%s", c.baseURL, url.PathEscape(messageID))

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.do(ctx, http.MethodPut, endpoint, payload)
	return err
}

// DeleteMessage is the REST fallback for message:delete.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	endpoint := fmt.Sprintf("%s/messages/%s", c.baseURL, url.PathEscape(messageID))

	_, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	return err
}

// Logout is best-effort: failures are swallowed.
func (c *Client) Logout(ctx context.Context) {
	_, _ = c.do(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// The credential is resolved before the request goes out; a failed
	// resolution downgrades to an anonymous request, the server enforces.
	if c.creds != nil {
		if tok, err := c.creds.Token(ctx); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.FetchError{URL: endpoint, Reason: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // .

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.FetchError{URL: endpoint, Reason: "failed to read response body"}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apperr.FetchError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
