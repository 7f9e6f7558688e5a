package httpinterface_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/registry"
	httpregistry "github.com/tdex-network/tdex-escrow/internal/infrastructure/registry/http"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/registry/inmemory"
	dbinmemory "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
	httpinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/http"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
)

const (
	alice   = domain.Account("alice")
	bob     = domain.Account("bob")
	mallory = domain.Account("mallory")
	escrow  = domain.Account("escrow")

	punksID = domain.RegistryID("punks")
)

var authSecret = []byte("daemon secret")

type testServer struct {
	*httptest.Server
	punks *inmemory.Registry
}

func newTestServer(t *testing.T) *testServer {
	ps := pubsub.NewService(pubsub.Config{})
	t.Cleanup(ps.Close)

	punks := inmemory.NewRegistry()
	registries := registry.NewManager(map[domain.RegistryID]ports.AssetRegistry{
		punksID: punks.Session(escrow),
	})
	escrowSvc, err := application.NewEscrowService(
		dbinmemory.NewRepoManager(), registries, ps, escrow,
	)
	require.NoError(t, err)

	handler, err := httpinterface.NewHandler(httpinterface.ServiceOpts{
		Address:    ":0",
		AuthSecret: authSecret,
		EscrowSvc:  escrowSvc,
		EventSvc:   application.NewEventService(ps),
		RegistryHandlers: map[domain.RegistryID]http.Handler{
			punksID: httpregistry.NewHandler(punks, authSecret),
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{srv, punks}
}

func (s *testServer) do(
	t *testing.T, method, path string, caller domain.Account, body interface{},
) (int, []byte) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, s.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if len(caller) > 0 {
		token, err := jwtauth.NewToken(authSecret, string(caller), time.Minute)
		require.NoError(t, err)
		jwtauth.SetBearer(req, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func (s *testServer) mintApproved(t *testing.T, owner domain.Account, asset uint64) {
	status, body := s.do(t, http.MethodPost, "/registries/punks/mint", owner,
		map[string]interface{}{"asset_id": asset},
	)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(t, http.MethodPost, "/registries/punks/approve", owner,
		map[string]interface{}{"operator": escrow, "asset_id": asset, "approved": true},
	)
	require.Equal(t, http.StatusOK, status, string(body))
}

func (s *testServer) startTrade(t *testing.T, cellCount uint32) string {
	tradeID := randomTradeID()
	status, body := s.do(t, http.MethodPost, "/v1/trades", alice, map[string]interface{}{
		"trade_id":          tradeID,
		"starter":           alice,
		"receiver":          bob,
		"starter_registry":  punksID,
		"receiver_registry": punksID,
		"cell_count":        cellCount,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return tradeID
}

func (s *testServer) getTrade(t *testing.T, tradeID string) application.TradeInfo {
	status, body := s.do(t, http.MethodGet, "/v1/trades/"+tradeID, "", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	info := application.TradeInfo{}
	require.NoError(t, json.Unmarshal(body, &info))
	return info
}

func TestTradeFlow(t *testing.T) {
	srv := newTestServer(t)
	tradeID := srv.startTrade(t, 12)
	srv.mintApproved(t, bob, 2)

	status, body := srv.do(t, http.MethodPost,
		fmt.Sprintf("/v1/trades/%s/cells/1", tradeID), bob,
		map[string]interface{}{"asset_id": 2},
	)
	require.Equal(t, http.StatusNoContent, status, string(body))

	info := srv.getTrade(t, tradeID)
	require.Equal(t, "STARTED", info.Status)
	require.Equal(t, []application.CellInfo{
		{Cell: 1, Asset: 2, Depositor: bob},
	}, info.Cells)

	for _, caller := range []domain.Account{alice, bob} {
		status, body := srv.do(t, http.MethodPost,
			fmt.Sprintf("/v1/trades/%s/readiness", tradeID), caller,
			map[string]interface{}{"ready": true},
		)
		require.Equal(t, http.StatusNoContent, status, string(body))
	}

	info = srv.getTrade(t, tradeID)
	require.Equal(t, "FINALIZED", info.Status)

	status, body = srv.do(t, http.MethodGet, "/registries/punks/assets/2/owner", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"owner":"alice"}`, string(body))

	status, body = srv.do(t, http.MethodGet, "/v1/trades?account=bob", "", nil)
	require.Equal(t, http.StatusOK, status)
	trades := struct {
		Trades []application.TradeInfo `json:"trades"`
	}{}
	require.NoError(t, json.Unmarshal(body, &trades))
	require.Len(t, trades.Trades, 1)
}

func TestDepositAndWithdraw(t *testing.T) {
	srv := newTestServer(t)
	tradeID := srv.startTrade(t, 2)
	srv.mintApproved(t, alice, 0)

	path := fmt.Sprintf("/v1/trades/%s/cells/2", tradeID)
	status, body := srv.do(t, http.MethodPost, path, alice,
		map[string]interface{}{"asset_id": 0},
	)
	require.Equal(t, http.StatusNoContent, status, string(body))

	owner, err := srv.punks.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, escrow, owner)

	status, _ = srv.do(t, http.MethodDelete, path, bob, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = srv.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusNoContent, status, string(body))

	owner, err = srv.punks.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, alice, owner)
	require.Empty(t, srv.getTrade(t, tradeID).Cells)
}

func TestGetUnknownTrade(t *testing.T) {
	srv := newTestServer(t)
	tradeID := randomTradeID()

	info := srv.getTrade(t, tradeID)
	require.Equal(t, "NULL", info.Status)
	require.Equal(t, tradeID, info.ID.String())
}

func TestFailingRequests(t *testing.T) {
	srv := newTestServer(t)
	tradeID := srv.startTrade(t, 3)
	srv.mintApproved(t, bob, 5)
	require.NoError(t, srv.punks.Mint(alice, 6))

	status, body := srv.do(t, http.MethodPost,
		fmt.Sprintf("/v1/trades/%s/cells/1", tradeID), bob,
		map[string]interface{}{"asset_id": 5},
	)
	require.Equal(t, http.StatusNoContent, status, string(body))

	tests := []struct {
		name           string
		method         string
		path           string
		caller         domain.Account
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "missing_token",
			method:         http.MethodPost,
			path:           "/v1/trades",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "invalid_participants",
			method: http.MethodPost,
			path:   "/v1/trades",
			caller: alice,
			body: map[string]interface{}{
				"trade_id": randomTradeID(), "starter": alice, "receiver": alice,
				"starter_registry": punksID, "receiver_registry": punksID,
				"cell_count": 1,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "unknown_registry",
			method: http.MethodPost,
			path:   "/v1/trades",
			caller: alice,
			body: map[string]interface{}{
				"trade_id": randomTradeID(), "starter": alice, "receiver": bob,
				"starter_registry": punksID, "receiver_registry": "kitties",
				"cell_count": 1,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "trade_already_exists",
			method: http.MethodPost,
			path:   "/v1/trades",
			caller: alice,
			body: map[string]interface{}{
				"trade_id": tradeID, "starter": alice, "receiver": bob,
				"starter_registry": punksID, "receiver_registry": punksID,
				"cell_count": 1,
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid_trade_id",
			method:         http.MethodGet,
			path:           "/v1/trades/zz",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid_cell",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/cells/abc", tradeID),
			caller:         alice,
			body:           map[string]interface{}{"asset_id": 6},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing_asset",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/cells/2", tradeID),
			caller:         alice,
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "cell_occupied",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/cells/1", tradeID),
			caller:         alice,
			body:           map[string]interface{}{"asset_id": 6},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "registry_not_approved",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/cells/2", tradeID),
			caller:         alice,
			body:           map[string]interface{}{"asset_id": 6},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not_participant",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/readiness", tradeID),
			caller:         mallory,
			body:           map[string]interface{}{"ready": true},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "asset_not_found",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/cells/2", tradeID),
			caller:         alice,
			body:           map[string]interface{}{"asset_id": 77},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "missing_readiness",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/readiness", tradeID),
			caller:         alice,
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "redundant_readiness",
			method:         http.MethodPost,
			path:           fmt.Sprintf("/v1/trades/%s/readiness", tradeID),
			caller:         alice,
			body:           map[string]interface{}{"ready": false},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown_webhook_topic",
			method:         http.MethodPost,
			path:           "/v1/webhooks",
			caller:         alice,
			body:           map[string]interface{}{"topic": "TRADE_SETTLED", "endpoint": "http://localhost/hook"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid_webhook_endpoint",
			method:         http.MethodPost,
			path:           "/v1/webhooks",
			caller:         alice,
			body:           map[string]interface{}{"topic": "*", "endpoint": "localhost"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown_webhook",
			method:         http.MethodDelete,
			path:           "/v1/webhooks/unknown",
			caller:         alice,
			expectedStatus: http.StatusNotFound,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			status, body := srv.do(t, tt.method, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.expectedStatus, status, string(body))

			resp := struct {
				Error string `json:"error"`
			}{}
			require.NoError(t, json.Unmarshal(body, &resp))
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestWebhooks(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/v1/webhooks", alice, map[string]interface{}{
		"topic": domain.TradeFinalizedTopic, "endpoint": "http://localhost:7000/hook", "secret": "secret",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	added := struct {
		ID string `json:"id"`
	}{}
	require.NoError(t, json.Unmarshal(body, &added))
	require.NotEmpty(t, added.ID)

	status, body = srv.do(t, http.MethodGet, "/v1/webhooks?topic="+domain.TradeFinalizedTopic, alice, nil)
	require.Equal(t, http.StatusOK, status)
	hooks := struct {
		Webhooks []application.Webhook `json:"webhooks"`
	}{}
	require.NoError(t, json.Unmarshal(body, &hooks))
	require.Equal(t, []application.Webhook{{
		ID:        added.ID,
		Topic:     domain.TradeFinalizedTopic,
		Endpoint:  "http://localhost:7000/hook",
		IsSecured: true,
	}}, hooks.Webhooks)

	status, _ = srv.do(t, http.MethodDelete, "/v1/webhooks/"+added.ID, alice, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestEventStream(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events?topic=" + domain.TradeStartedTopic
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	tradeID := srv.startTrade(t, 4)

	//nolint
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	event := struct {
		Topic   string                 `json:"topic"`
		Payload map[string]interface{} `json:"payload"`
	}{}
	require.NoError(t, json.Unmarshal(msg, &event))
	require.Equal(t, domain.TradeStartedTopic, event.Topic)
	require.Equal(t, tradeID, event.Payload["trade_id"])

	_, _, err = websocket.DefaultDialer.DialContext(
		context.Background(),
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/events?topic=UNKNOWN", nil,
	)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	srv.startTrade(t, 1)

	status, body := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), "escrow_operations_total")
}

func TestNewService(t *testing.T) {
	_, err := httpinterface.NewService(httpinterface.ServiceOpts{})
	require.Error(t, err)

	_, err = httpinterface.NewHandler(httpinterface.ServiceOpts{
		Address: ":0", AuthSecret: authSecret,
	})
	require.Error(t, err)
}

func randomTradeID() string {
	var id domain.TradeID
	//nolint
	rand.Read(id[:])
	return id.String()
}
