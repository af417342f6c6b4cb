package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"nhooyr.io/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newWSServer(t *testing.T, tokens ports.TokenService) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(8, nil, zerolog.Nop())
	h := NewHandler(hub, tokens, time.Second, 0, zerolog.Nop())

	r := gin.New()
	r.GET("/ws", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHandler_StreamsEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenService(ctrl)
	actor := domain.UserActor("UR000001")
	tokens.EXPECT().Validate("good-token").Return(&ports.TokenClaims{Actor: actor}, nil)

	hub, srv := newWSServer(t, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv)+"?token=good-token", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Connected(actor) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(ctx, domain.NewEvent(domain.EventBalanceUpdated, actor, map[string]string{"balance": "15.00"}))

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "balance_updated", got["event"])
	assert.Equal(t, "UR000001", got["party_id"])
	assert.Equal(t, map[string]interface{}{"balance": "15.00"}, got["data"])
}

func TestHandler_BearerHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenService(ctrl)
	actor := domain.MerchantActor("MR000001")
	tokens.EXPECT().Validate("hdr-token").Return(&ports.TokenClaims{Actor: actor}, nil)

	hub, srv := newWSServer(t, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer hdr-token"}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Connected(actor) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "bye")
	require.Eventually(t, func() bool { return hub.Connected(actor) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsBadToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenService(ctrl)
	tokens.EXPECT().Validate("bad").Return(nil, errors.New("expired"))

	_, srv := newWSServer(t, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv)+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_MissingToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, srv := newWSServer(t, mocks.NewMockTokenService(ctrl))

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}

func TestRawWriter_UnwrapsGinWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	assert.Same(t, rec, rawWriter(c.Writer))
}
