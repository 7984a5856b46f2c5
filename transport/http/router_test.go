package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/adapters/registry"
	"github.com/layer-3/labledger/adapters/store"
	"github.com/layer-3/labledger/adapters/tokenizer"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/internal/eth"
	"github.com/layer-3/labledger/internal/logging"
	"github.com/layer-3/labledger/ledger"
	"github.com/layer-3/labledger/ports"
	"github.com/layer-3/labledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	alice    = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	bobKey   = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	bob      = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type notDeployed struct{}

func (notDeployed) Deployment(ctx context.Context) (*core.Deployment, error) {
	return nil, core.ErrRegistryNotDeployed
}

type testGateway struct {
	router *gin.Engine
	now    time.Time
}

func (g *testGateway) clock() time.Time { return g.now }

func newTestGateway(t *testing.T, deployments ports.DeploymentSource) *testGateway {
	t.Helper()

	g := &testGateway{now: time.Unix(1700000000, 0)}
	log := logging.Discard()

	challenges := store.NewMemoryStore(store.WithClock(g.clock))
	tokens := tokenizer.NewJWTTokenizerWithClock([]byte("test-secret"), g.clock)
	auth := service.NewAuthService(challenges, tokens, []string{alice},
		service.WithAuthClock(g.clock),
		service.WithAuthLogger(log),
	)

	local := registry.NewLocalRegistry(ledger.NewMachine(), 31337)
	if deployments == nil {
		deployments = local
	}
	reg := service.NewRegistryService(local, deployments, service.WithRegistryLogger(log))

	g.router = SetupRouter(auth, reg)
	return g
}

func (g *testGateway) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *testGateway) nonce(t *testing.T, address string) string {
	t.Helper()

	w := g.do(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": address})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Nonce
}

func signWith(t *testing.T, hexKey, message string) string {
	t.Helper()
	key, err := eth.ParsePrivateKey(hexKey)
	require.NoError(t, err)
	sig, err := eth.SignText(key, message)
	require.NoError(t, err)
	return sig
}

func (g *testGateway) login(t *testing.T, hexKey, address string) string {
	t.Helper()

	sig := signWith(t, hexKey, g.nonce(t, address))
	w := g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": address, "signature": sig})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestAuthFlow(t *testing.T) {
	g := newTestGateway(t, nil)

	nonce := g.nonce(t, strings.ToUpper(alice[:2])+alice[2:])
	sig := signWith(t, aliceKey, nonce)

	w := g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": alice, "signature": sig})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, alice, resp.Address)
	assert.True(t, resp.IsAdmin)
	assert.NotEmpty(t, resp.Token)

	// replaying the same pair finds no challenge
	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": alice, "signature": sig})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Challenge not found, request a new one", errorOf(t, w))
}

func TestAuthErrors(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.do(t, http.MethodPost, "/auth/nonce", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": "0x1234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": alice})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": alice, "signature": "0x00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Challenge not found, request a new one", errorOf(t, w))

	// only the latest of two challenges is valid
	first := g.nonce(t, alice)
	g.nonce(t, alice)
	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": alice, "signature": signWith(t, aliceKey, first)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Signature does not match address", errorOf(t, w))

	// expired
	nonce := g.nonce(t, bob)
	g.now = g.now.Add(store.DefaultChallengeTTL + time.Second)
	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": bob, "signature": signWith(t, bobKey, nonce)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Challenge expired, request a new one", errorOf(t, w))

	// undecodable signature
	g.nonce(t, bob)
	w = g.do(t, http.MethodPost, "/auth/verify", "", gin.H{"address": bob, "signature": "0xzz"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid signature", errorOf(t, w))
}

func TestRegistryWritesAndReads(t *testing.T) {
	g := newTestGateway(t, nil)
	token := g.login(t, aliceKey, alice)

	w := g.do(t, http.MethodPost, "/api/events", token, gin.H{"title": "Aula 1", "description": "Intro", "eventDate": 1700000000})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = g.do(t, http.MethodPost, "/api/identities", token, gin.H{"name": "Alice", "matricula": "2023001", "curso": "Redes"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var identity core.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "2023001", identity.Matricula)

	w = g.do(t, http.MethodPost, "/api/identities", token, gin.H{"name": "Alice", "matricula": "2023002", "curso": "Redes"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Identity already exists", errorOf(t, w))

	bobToken := g.login(t, bobKey, bob)
	w = g.do(t, http.MethodPost, "/api/identities", bobToken, gin.H{"name": "Bob", "matricula": "2023001", "curso": "Redes"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Matricula already in use", errorOf(t, w))

	w = g.do(t, http.MethodPut, "/api/identities", bobToken, gin.H{"name": "Bob", "curso": "Redes"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodPut, "/api/identities", token, gin.H{"name": "Alice B.", "curso": "Computação"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, e := range []gin.H{
		{"title": "Aula 1", "description": "Intro", "eventDate": 1700000000},
		{"title": "Aula 2", "description": "Lab", "eventDate": 1700003600},
	} {
		w = g.do(t, http.MethodPost, "/api/events", token, e)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = g.do(t, http.MethodGet, "/api/events?owner="+alice, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []core.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].ID)
	assert.Equal(t, "Aula 2", events[1].Title)

	w = g.do(t, http.MethodGet, "/api/events/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodGet, "/api/events/3", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodGet, "/api/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodGet, "/api/identities/"+alice, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "Alice B.", identity.Name)

	w = g.do(t, http.MethodGet, "/api/identities/"+bob, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodGet, "/api/identities/not-an-address", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodGet, "/api/identities?matricula=2023001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodGet, "/api/identities?matricula=2023999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(t, http.MethodGet, "/api/identities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var identities []core.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identities))
	assert.Len(t, identities, 1)
}

func TestEmptyListsAreArrays(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = g.do(t, http.MethodGet, "/api/identities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProtectedRoutes(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = g.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", errorOf(t, w))

	bobToken := g.login(t, bobKey, bob)
	w = g.do(t, http.MethodGet, "/api/me", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"`+bob+`","isAdmin":false,"identity":null}`, w.Body.String())

	w = g.do(t, http.MethodGet, "/api/admin/summary", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := g.login(t, aliceKey, alice)
	w = g.do(t, http.MethodGet, "/api/admin/summary", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"identities":0,"events":0,"recentEvents":[]}`, w.Body.String())

	g.now = g.now.Add(2 * time.Hour)
	w = g.do(t, http.MethodGet, "/api/me", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token expired", errorOf(t, w))
}

func TestContracts(t *testing.T) {
	g := newTestGateway(t, nil)
	w := g.do(t, http.MethodGet, "/api/contracts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var d map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, registry.LocalNetwork, d["network"])
	assert.EqualValues(t, 31337, d["chainId"])
	assert.NotEmpty(t, d["identityRegistry"])
	assert.NotEmpty(t, d["eventStorage"])

	g = newTestGateway(t, notDeployed{})
	w = g.do(t, http.MethodGet, "/api/contracts", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		core.ErrIdentityAlreadyExists: http.StatusConflict,
		core.ErrMatriculaAlreadyInUse: http.StatusConflict,
		core.ErrIdentityNotFound:      http.StatusNotFound,
		core.ErrSignerUnavailable:     http.StatusForbidden,
		core.ErrLedgerUnavailable:     http.StatusServiceUnavailable,
		core.ErrWriteUnconfirmed:      http.StatusGatewayTimeout,
		core.ErrChallengeExpired:      http.StatusUnauthorized,
		context.Canceled:              http.StatusInternalServerError,
	}
	for err, want := range cases {
		status, _ := statusFor(err)
		assert.Equal(t, want, status, err.Error())
	}
}
