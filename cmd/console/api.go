package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// StorySummary mirrors an entry of GET /v1/stories.
type StorySummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// apiClient talks to the Chronicle HTTP API on behalf of one player.
type apiClient struct {
	baseURL  string
	playerID string
	http     *http.Client
}

func newAPIClient(cfg *ConsoleConfig) *apiClient {
	return &apiClient{
		baseURL:  cfg.APIBaseURL,
		playerID: cfg.PlayerID,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a JSON request and decodes the reply into out when the status
// matches want.
func (c *apiClient) do(method, path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Player-ID", c.playerID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listStories() ([]StorySummary, error) {
	var resp struct {
		Stories []StorySummary `json:"stories"`
	}
	if err := c.do(http.MethodGet, "/v1/stories", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Stories, nil
}

func (c *apiClient) createSession(storyID, characterID string) (*state.Session, error) {
	var sess state.Session
	req := chat.CreateSessionRequest{StoryID: storyID, CharacterID: characterID}
	if err := c.do(http.MethodPost, "/v1/sessions", req, http.StatusCreated, &sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sess, nil
}

func (c *apiClient) sendTurn(sessionID uuid.UUID, action string) (*chat.TurnResponse, error) {
	var resp chat.TurnResponse
	path := fmt.Sprintf("/v1/sessions/%s/turns", sessionID)
	if err := c.do(http.MethodPost, path, chat.TurnRequest{Action: action}, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) npcTurn(sessionID uuid.UUID) (*chat.TurnResponse, error) {
	var resp chat.TurnResponse
	path := fmt.Sprintf("/v1/sessions/%s/npc-turn", sessionID)
	if err := c.do(http.MethodPost, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
