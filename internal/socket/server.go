/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package socket

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Seednode/sketchbox/internal/game"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Coordinator is the subset of *game.Manager the transport drives.
type Coordinator interface {
	HostRoom(conn, addr, nickname string) (game.Seat, error)
	JoinRoom(conn, addr, code, nickname string) (game.Seat, error)
	Rejoin(conn, code, playerID, tok, nickname string) (game.Seat, error)
	ToggleReady(conn, code string) error
	StartRound(conn, code string) error
	UpdateSettings(conn, code string, patch game.SettingsPatch) error
	SubmitDrawing(conn, code, drawing string) error
	Chat(conn, code, text string) error
	LeaveRoom(conn, code string) error
	Disconnect(conn string)
}

type Options struct {
	// AllowedOrigins lists the Origin values accepted on upgrade. Empty
	// accepts any origin.
	AllowedOrigins []string

	// MaxMessageSize caps a single inbound frame, in bytes.
	MaxMessageSize int64

	// MessageRate and MessageBurst bound how fast one connection may send
	// frames. A non-positive rate disables the check.
	MessageRate  float64
	MessageBurst int

	// RemoteAddr maps a request to the key used for join rate limiting.
	RemoteAddr func(*http.Request) string

	Logger logrus.FieldLogger
}

// Server upgrades HTTP requests and runs one read and one write loop per
// connection.
type Server struct {
	hub      *Hub
	games    Coordinator
	upgrader websocket.Upgrader
	opts     Options
	log      logrus.FieldLogger
}

func NewServer(hub *Hub, games Coordinator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	if opts.RemoteAddr == nil {
		opts.RemoteAddr = func(r *http.Request) string { return r.RemoteAddr }
	}

	s := &Server{
		hub:   hub,
		games: games,
		opts:  opts,
		log:   opts.Logger,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}

	origin := strings.TrimSuffix(r.Header.Get("Origin"), "/")

	return slices.ContainsFunc(s.opts.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("SERVE: WebSocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		addr: s.opts.RemoteAddr(r),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if s.opts.MessageRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.opts.MessageRate), max(s.opts.MessageBurst, 1))
	}

	s.hub.register(c)

	s.log.WithFields(logrus.Fields{"conn": c.id, "addr": c.addr}).Info("SERVE: Connection opened")

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c.id)
		s.games.Disconnect(c.id)
		_ = c.conn.Close()

		s.log.WithField("conn", c.id).Info("SERVE: Connection closed")
	}()

	if s.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).WithField("conn", c.id).Warn("SERVE: Unexpected close")
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		s.handle(c, data)
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle decodes one frame and acknowledges it when the client asked.
func (s *Server) handle(c *client, data []byte) {
	var env envelope
	if err := decode(data, &env); err != nil {
		s.log.WithField("conn", c.id).Debug("SERVE: Dropping malformed frame")
		return
	}

	var (
		result any
		err    error
	)
	if c.limiter != nil && !c.limiter.Allow() {
		err = game.ErrRateLimited
	} else {
		result, err = s.dispatch(c, env)
	}

	if fireAndForget(env.Event) || env.Ack == nil {
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"conn": c.id, "event": env.Event}).
				Debug("SERVE: Event rejected")
		}
		return
	}

	s.hub.sendFrame(c.id, newAck(*env.Ack, result, err))
}

func (s *Server) dispatch(c *client, env envelope) (any, error) {
	switch env.Event {
	case EventHostRoom:
		var req hostRoomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		seat, err := s.games.HostRoom(c.id, c.addr, req.Nickname)
		if err != nil {
			return nil, err
		}

		return hostRoomResponse{
			Code:     seat.Code,
			PlayerID: seat.PlayerID,
			Token:    seat.Token,
			Nickname: seat.Nickname,
		}, nil
	case EventJoinRoom:
		var req joinRoomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		seat, err := s.games.JoinRoom(c.id, c.addr, req.Code, req.Nickname)
		if err != nil {
			return nil, err
		}

		return joinRoomResponse{
			PlayerID: seat.PlayerID,
			Token:    seat.Token,
			Nickname: seat.Nickname,
		}, nil
	case EventRejoinRoom:
		var req rejoinRoomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		seat, err := s.games.Rejoin(c.id, req.Code, req.PlayerID, req.Token, req.Nickname)
		if err != nil {
			return nil, err
		}

		return rejoinRoomResponse{PlayerID: seat.PlayerID, HostID: seat.HostID}, nil
	case EventToggleReady:
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.ToggleReady(c.id, req.Code)
	case EventStartRound:
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.StartRound(c.id, req.Code)
	case EventUpdateSettings:
		var req updateSettingsRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.UpdateSettings(c.id, req.Code, game.SettingsPatch{
			RoundDuration: req.RoundDuration,
			Category:      req.Category,
		})
	case EventSubmitDrawing:
		var req submitDrawingRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.SubmitDrawing(c.id, req.Code, req.Drawing)
	case EventChatMessage:
		var req chatMessageRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.Chat(c.id, req.Code, req.Text)
	case EventLeaveRoom:
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}

		return nil, s.games.LeaveRoom(c.id, req.Code)
	default:
		return nil, errUnknownEvent
	}
}

