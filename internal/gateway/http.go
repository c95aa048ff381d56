package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
)

// Client implements Gateway over the backend's JSON API with bearer
// token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// do executes one JSON round trip. A non-2xx status becomes a gateway
// error carrying the backend's error message when one is present.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Gateway("encode request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Gateway("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Gateway("call "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var remote struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&remote)
		if remote.Error == "" {
			remote.Error = resp.Status
		}
		return errors.Gateway(fmt.Sprintf("%s %s: %s", method, path, remote.Error), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Gateway("decode response", err)
		}
	}
	return nil
}

func (c *Client) SendFriendRequest(ctx context.Context, counterpartID string) (models.Friendship, error) {
	var out struct {
		Friendship models.Friendship `json:"friendship"`
	}
	err := c.do(ctx, http.MethodPost, "/friends/requests", map[string]string{"counterpartId": counterpartID}, &out)
	return out.Friendship, err
}

func (c *Client) AcceptFriendRequest(ctx context.Context, counterpartID string) (models.Friendship, error) {
	var out struct {
		Friendship models.Friendship `json:"friendship"`
	}
	err := c.do(ctx, http.MethodPost, "/friends/requests/"+url.PathEscape(counterpartID)+"/accept", nil, &out)
	return out.Friendship, err
}

func (c *Client) DeclineFriendRequest(ctx context.Context, counterpartID string) error {
	return c.do(ctx, http.MethodPost, "/friends/requests/"+url.PathEscape(counterpartID)+"/decline", nil, nil)
}

func (c *Client) CancelFriendRequest(ctx context.Context, counterpartID string) error {
	return c.do(ctx, http.MethodDelete, "/friends/requests/"+url.PathEscape(counterpartID), nil, nil)
}

func (c *Client) RemoveFriend(ctx context.Context, counterpartID string) error {
	return c.do(ctx, http.MethodDelete, "/friends/"+url.PathEscape(counterpartID), nil, nil)
}

func (c *Client) BlockUser(ctx context.Context, counterpartID string) (models.Friendship, error) {
	var out struct {
		Friendship models.Friendship `json:"friendship"`
	}
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(counterpartID)+"/block", nil, &out)
	return out.Friendship, err
}

func (c *Client) UnblockUser(ctx context.Context, counterpartID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(counterpartID)+"/block", nil, nil)
}

func (c *Client) FetchFriends(ctx context.Context) ([]models.Profile, error) {
	var out struct {
		Friends []models.Profile `json:"friends"`
	}
	err := c.do(ctx, http.MethodGet, "/friends", nil, &out)
	return out.Friends, err
}

func (c *Client) FetchRequests(ctx context.Context) (Requests, error) {
	var out Requests
	err := c.do(ctx, http.MethodGet, "/friends/requests", nil, &out)
	return out, err
}

func (c *Client) FetchSuggestions(ctx context.Context) ([]models.Profile, error) {
	var out struct {
		Suggestions []models.Profile `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodGet, "/friends/suggestions", nil, &out)
	return out.Suggestions, err
}

func (c *Client) FetchStatus(ctx context.Context, counterpartID string) (models.Status, error) {
	var out struct {
		Status models.Status `json:"status"`
	}
	err := c.do(ctx, http.MethodGet, "/friends/status/"+url.PathEscape(counterpartID), nil, &out)
	return out.Status, err
}

func (c *Client) FetchProfiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	var out struct {
		Profiles []models.Profile `json:"profiles"`
	}
	err := c.do(ctx, http.MethodPost, "/users/batch", map[string][]string{"ids": ids}, &out)
	return out.Profiles, err
}

func (c *Client) FetchStatuses(ctx context.Context, ids []string) (map[string]models.Status, error) {
	var out struct {
		Statuses map[string]models.Status `json:"statuses"`
	}
	err := c.do(ctx, http.MethodPost, "/friends/status/batch", map[string][]string{"ids": ids}, &out)
	return out.Statuses, err
}

func (c *Client) CreateConversation(ctx context.Context, counterpartID string) (models.Conversation, error) {
	var out struct {
		Conversation models.Conversation `json:"conversation"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations", map[string]string{"counterpartId": counterpartID}, &out)
	return out.Conversation, err
}

func (c *Client) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	err := c.do(ctx, http.MethodGet, "/conversations", nil, &out)
	return out.Conversations, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string, msgType models.MessageType, reaction models.ReactionType) (models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	payload := map[string]string{
		"content": content,
		"type":    string(msgType),
	}
	if reaction != models.ReactionNone {
		payload["reactionType"] = string(reaction)
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(conversationID)+"/messages", payload, &out)
	return out.Message, err
}

func (c *Client) FetchMessages(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages" +
		"?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Messages, err
}

func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(conversationID)+"/read", nil, nil)
}

func (c *Client) FetchUnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Unread int `json:"unread"`
	}
	err := c.do(ctx, http.MethodGet, "/conversations/unread", nil, &out)
	return out.Unread, err
}

func (c *Client) CreateMessageRequest(ctx context.Context, conversationID string) (models.MessageRequest, error) {
	var out struct {
		Request models.MessageRequest `json:"request"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(conversationID)+"/requests", nil, &out)
	return out.Request, err
}

func (c *Client) AcceptMessageRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/message-requests/"+url.PathEscape(requestID)+"/accept", nil, nil)
}

func (c *Client) DeclineMessageRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/message-requests/"+url.PathEscape(requestID)+"/decline", nil, nil)
}

func (c *Client) FetchEventHost(ctx context.Context, eventID string) (models.Profile, error) {
	var out struct {
		Host models.Profile `json:"host"`
	}
	err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/host", nil, &out)
	return out.Host, err
}
