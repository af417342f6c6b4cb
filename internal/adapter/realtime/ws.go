package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Handler upgrades authenticated requests to a websocket and streams the
// caller's events until either side goes away.
type Handler struct {
	hub          *Hub
	tokens       ports.TokenService
	writeTimeout time.Duration
	pingInterval time.Duration
	log          zerolog.Logger
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(hub *Hub, tokens ports.TokenService, writeTimeout, pingInterval time.Duration, log zerolog.Logger) *Handler {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Handler{
		hub:          hub,
		tokens:       tokens,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		log:          log,
	}
}

// Serve handles GET /ws. The session token comes from the Authorization
// header or, for browsers, the token query parameter.
func (h *Handler) Serve(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	conn, err := websocket.Accept(rawWriter(c.Writer), c.Request, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	client := h.hub.Register(claims.Actor)
	defer h.hub.Unregister(client)

	h.log.Debug().
		Str("party_type", string(claims.Actor.Type)).
		Str("party_id", claims.Actor.ID).
		Msg("realtime client connected")

	// Inbound frames are ignored; CloseRead cancels ctx once the peer leaves.
	ctx := conn.CloseRead(c.Request.Context())
	if err := h.stream(ctx, conn, client); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, client *Client) error {
	var pings <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return conn.Close(websocket.StatusPolicyViolation, "client too slow")
		case event := <-client.Events():
			if err := h.write(ctx, conn, event); err != nil {
				return err
			}
		case <-pings:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// rawWriter returns the writer underneath gin's wrapper. The upgrade writes
// the 101 status before hijacking, which gin refuses once headers are out.
func rawWriter(w gin.ResponseWriter) http.ResponseWriter {
	if u, ok := w.(interface{ Unwrap() http.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return w
}

func bearerToken(header string) string {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
