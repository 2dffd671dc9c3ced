// Package graphql talks to the chat backend: queries and mutations over
// HTTP, subscriptions over a graphql-ws websocket.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"

	gql "github.com/hasura/go-graphql-client"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/proto"
)

// Config locates the backend.
type Config struct {
	HTTPURL        string
	WSURL          string
	Token          string
	RequestTimeout time.Duration
}

// Client implements the session backend.
type Client struct {
	cfg Config
	gql *gql.Client
	log *zerolog.Logger
}

// New constructs a client. No connection is made until the first call.
func New(cfg Config, logger *zerolog.Logger) *Client {
	l := logger.With().Str("component", "backend").Logger()
	doer := &statusDoer{client: &stdhttp.Client{Timeout: cfg.RequestTimeout}}
	client := gql.NewClient(cfg.HTTPURL, doer).WithRequestModifier(func(r *stdhttp.Request) {
		if cfg.Token != "" {
			r.Header.Set("Authorization", "Bearer "+cfg.Token)
		}
	})
	return &Client{
		cfg: cfg,
		gql: client,
		log: &l,
	}
}

// errPayloadTooLarge is returned for HTTP 413 responses.
var errPayloadTooLarge = errors.New("request entity too large")

// statusDoer turns a 413 into an error before the GraphQL client reads the
// body, so size rejections are not confused with other request failures.
type statusDoer struct {
	client *stdhttp.Client
}

func (d *statusDoer) Do(req *stdhttp.Request) (*stdhttp.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == stdhttp.StatusRequestEntityTooLarge {
		resp.Body.Close()
		return nil, errPayloadTooLarge
	}
	return resp, nil
}

// FetchGroup returns the group and its members.
func (c *Client) FetchGroup(ctx context.Context, groupID string) (core.Group, error) {
	var data struct {
		GetGroupName *proto.Group `json:"GetGroupName"`
	}
	if err := c.exec(ctx, "GetGroupName", queryGroup, map[string]any{"groupid": groupID}, &data); err != nil {
		return core.Group{}, fmt.Errorf("fetch group %s: %w", groupID, err)
	}
	if data.GetGroupName == nil {
		return core.Group{}, core.Wrap(core.ErrCodeNotFound, "group "+groupID+" not found", nil)
	}
	g := groupToCore(*data.GetGroupName)
	if g.ID == "" {
		g.ID = groupID
	}
	return g, nil
}

// FetchHistoricalMessages returns the one-shot snapshot for groupID.
func (c *Client) FetchHistoricalMessages(ctx context.Context, groupID string) ([]core.Message, error) {
	var data struct {
		GetInitialMessages []proto.Message `json:"GetInitialMessages"`
	}
	if err := c.exec(ctx, "GetInitialMessages", queryInitialMessages, map[string]any{"groupid": groupID}, &data); err != nil {
		return nil, fmt.Errorf("fetch messages for %s: %w", groupID, err)
	}
	return messagesToCore(data.GetInitialMessages, groupID), nil
}

// SendMessage dispatches an outbound message under its client-generated id.
func (c *Client) SendMessage(ctx context.Context, msg core.OutboundMessage) error {
	err := c.exec(ctx, "SendMessage", mutationSendMessage, map[string]any{
		"groupid":   msg.GroupID,
		"body":      msg.Body,
		"author":    authorToProto(msg.Author),
		"image":     msg.IsImage,
		"messageid": msg.ID,
	}, nil)
	if err != nil {
		return fmt.Errorf("send message %s: %w", msg.ID, err)
	}
	return nil
}

// RefreshActivity is the heartbeat that keeps elapsed times current upstream.
func (c *Client) RefreshActivity(ctx context.Context) error {
	if err := c.exec(ctx, "UpdateTime", mutationUpdateTime, nil, nil); err != nil {
		return fmt.Errorf("update time: %w", err)
	}
	return nil
}

// SetOnline switches userID online or offline.
func (c *Client) SetOnline(ctx context.Context, userID string, online bool) error {
	err := c.exec(ctx, "SwitchOnline", mutationSwitchOnline, map[string]any{"authorid": userID, "value": online}, nil)
	if err != nil {
		return fmt.Errorf("switch online %s=%t: %w", userID, online, err)
	}
	return nil
}

func (c *Client) exec(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	raw, err := c.gql.ExecRaw(ctx, query, variables, gql.OperationName(operation))
	if err != nil {
		return classify(err)
	}
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}

// classify maps request and GraphQL errors. Size complaints become
// OversizedPayload so the composer can roll the entry back.
func classify(err error) error {
	if errors.Is(err, errPayloadTooLarge) {
		return core.Wrap(core.ErrCodeOversizedPayload, "backend rejected payload size", err)
	}
	var gqlErrs gql.Errors
	if !errors.As(err, &gqlErrs) {
		return err
	}
	msgs := make([]string, 0, len(gqlErrs))
	for _, e := range gqlErrs {
		msgs = append(msgs, e.Message)
	}
	joined := strings.Join(msgs, "; ")
	if mentionsSize(joined) {
		return core.Wrap(core.ErrCodeOversizedPayload, "backend rejected payload size", err)
	}
	return fmt.Errorf("graphql: %s", joined)
}

func mentionsSize(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "too large") || strings.Contains(lower, "payload") || strings.Contains(lower, "too big")
}
