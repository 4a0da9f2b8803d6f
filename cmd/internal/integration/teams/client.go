package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// MeetingRequest is the provider-side shape of a meeting booking.
type MeetingRequest struct {
	Subject     string     `json:"subject"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Timezone    string     `json:"timezone"`
	Description string     `json:"description,omitempty"`
	Attendees   []Attendee `json:"attendees"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// MeetingLink is the provider's handle for a booked meeting.
type MeetingLink struct {
	MeetingID string `json:"meeting_id"`
	JoinURL   string `json:"join_url"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Client is a thin REST client for the online-meeting provider.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func InitClient() (*Client, error) {
	baseURL := os.Getenv("MEETING_PROVIDER_URL")
	if baseURL == "" {
		return nil, errors.New("MEETING_PROVIDER_URL is not set")
	}

	return &Client{
		baseURL: baseURL,
		token:   os.Getenv("MEETING_PROVIDER_TOKEN"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) Create(ctx context.Context, req *MeetingRequest) (*MeetingLink, error) {
	var link MeetingLink
	err := c.do(ctx, http.MethodPost, "/v1/meetings", req, &link)
	if err != nil {
		return nil, err
	}
	if link.JoinURL == "" {
		return nil, errors.New("provider returned no join url")
	}
	return &link, nil
}

func (c *Client) Update(ctx context.Context, externalID string, req *MeetingRequest) error {
	path := "/v1/meetings/" + externalID
	return c.do(ctx, http.MethodPatch, path, req, nil)
}

func (c *Client) Cancel(ctx context.Context, externalID, joinURL string) error {
	path := "/v1/meetings/" + externalID
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ebody errorBody
		_ = json.NewDecoder(resp.Body).Decode(&ebody)
		if ebody.Message != "" {
			return fmt.Errorf("provider responded %d: %s", resp.StatusCode, ebody.Message)
		}
		return fmt.Errorf("provider responded %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
