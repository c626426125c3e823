package calendarclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	realtime "fieldops-server/internal/websocket"

	"github.com/gorilla/websocket"
)

// Listen subscribes to realtime changes and applies them to the cache until
// ctx is done or the connection drops. Changes made by this client are not
// delivered back to it.
func (c *Client) Listen(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {c.bearer()}, "origin": {c.clientID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Warn("Ignoring malformed realtime message")
			continue
		}
		if err := c.apply(&msg); err != nil {
			c.logger.WithError(err).WithField("type", msg.Type).Warn("Ignoring realtime message")
		}
	}
}

func (c *Client) apply(msg *realtime.Message) error {
	switch msg.Type {
	case realtime.TypeDayUpdate:
		var p realtime.DayUpdatePayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return err
		}
		if p.Day == nil {
			return errors.New("day update without day")
		}
		c.cache.PutDay(p.Day)

	case realtime.TypeAssignmentUpdate:
		var p realtime.AssignmentUpdatePayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return err
		}
		if p.Assignment == nil {
			return errors.New("assignment update without assignment")
		}
		c.cache.PutAssignment(p.Assignment)

	case realtime.TypeAssignmentDelete:
		var p realtime.AssignmentDeletePayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return err
		}
		c.cache.RemoveAssignment(p.ID)
	}
	return nil
}
