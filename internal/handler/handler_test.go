package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Init()
	os.Exit(m.Run())
}

type fakeClaims struct {
	submitErr error
	lastFID   uint64
}

func (f *fakeClaims) Submit(_ context.Context, address string, connected bool, fid uint64) (submission.Snapshot, error) {
	f.lastFID = fid
	if !connected {
		return submission.Snapshot{Account: address, State: submission.StateIdle}, errno.ErrWalletNotConnected
	}
	if f.submitErr != nil {
		return submission.Snapshot{Account: address, State: submission.StateSubmitting}, f.submitErr
	}
	return submission.Snapshot{Account: address, State: submission.StateSubmitting, RequestID: "req-1"}, nil
}

func (f *fakeClaims) State(address string) (submission.Snapshot, error) {
	if address != addr {
		return submission.Snapshot{}, errno.ErrInvalidAddress
	}
	return submission.Snapshot{Account: address, State: submission.StateIdle}, nil
}

func (f *fakeClaims) History(_ context.Context, address string) ([]model.Claim, error) {
	return []model.Claim{{RequestID: "req-1", Address: address, Phase: "success"}}, nil
}

func (f *fakeClaims) Descriptor() (service.CallInfo, error) {
	return service.CallInfo{
		Descriptor: contract.Descriptor{FunctionName: "mintAttendance", Args: []string{contract.DemoEventID, "0x"}},
		ChainID:    contract.BaseSepoliaChainID,
		Sponsored:  true,
	}, nil
}

type fakeStatus struct{}

func (fakeStatus) Status() service.ClaimStatus {
	return service.ClaimStatus{ChainID: contract.BaseSepoliaChainID, Sponsored: true, Policy: submission.PolicyStrict, InFlight: 2}
}

type fakeIdentity struct{}

func (fakeIdentity) Lookup(_ context.Context, address string) (*service.Identity, error) {
	if address != addr {
		return nil, errno.ErrInvalidAddress
	}
	return &service.Identity{Address: address, BalanceWei: "1", BalanceETH: "0.000000000000000001"}, nil
}

type fakeFrames struct {
	users map[uint64]model.FrameUser
}

func (f *fakeFrames) Add(_ context.Context, fid uint64, address string) (*model.FrameUser, error) {
	u := model.FrameUser{FID: fid, Address: address}
	f.users[fid] = u
	return &u, nil
}

func (f *fakeFrames) Get(_ context.Context, fid uint64) (*model.FrameUser, error) {
	u, ok := f.users[fid]
	if !ok {
		return nil, errno.ErrFrameNotFound
	}
	return &u, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newEngine(claims ClaimAPI) *gin.Engine {
	r := gin.New()
	ch := NewClaimHandler(claims)
	ih := NewIdentityHandler(fakeIdentity{})
	fh := NewFrameHandler(&fakeFrames{users: map[uint64]model.FrameUser{}})

	r.GET("/health", NewHealthHandler("simulated", fakeStatus{}).Check)
	r.GET("/contract/call", ch.GetCall)
	r.POST("/claims", ch.Submit)
	r.GET("/claims/:address", ch.History)
	r.GET("/claims/:address/state", ch.State)
	r.GET("/identity/:address", ih.Get)
	r.POST("/frames", fh.Add)
	r.GET("/frames/:fid", fh.Get)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealthCheck(t *testing.T) {
	env := do(t, newEngine(&fakeClaims{}), http.MethodGet, "/health", nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"status":"UP"`)
	assert.Contains(t, string(env.Data), `"executor":"simulated"`)
	assert.Contains(t, string(env.Data), `"chain_id":84532`)
	assert.Contains(t, string(env.Data), `"policy":"strict"`)
	assert.Contains(t, string(env.Data), `"in_flight":2`)
}

func TestHealthCheck_LivenessOnly(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler("", nil).Check)
	env := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, 0, env.Code)
	assert.NotContains(t, string(env.Data), "chain_id")
}

func TestClaimHandler_Submit(t *testing.T) {
	tests := []struct {
		name     string
		claims   *fakeClaims
		body     interface{}
		wantCode int
		wantData string
	}{
		{"ok", &fakeClaims{}, gin.H{"address": addr, "connected": true, "fid": 3}, 0, `"request_id":"req-1"`},
		{"not connected", &fakeClaims{}, gin.H{"address": addr, "connected": false}, errno.ErrWalletNotConnected.Code, `"state":"idle"`},
		{"in flight", &fakeClaims{submitErr: errno.ErrSubmissionInFlight}, gin.H{"address": addr, "connected": true}, errno.ErrSubmissionInFlight.Code, `"state":"submitting"`},
		{"bad address", &fakeClaims{}, gin.H{"address": "0x1234", "connected": true}, errno.ErrBind.Code, ""},
		{"missing address", &fakeClaims{}, gin.H{"connected": true}, errno.ErrBind.Code, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, newEngine(tt.claims), http.MethodPost, "/claims", tt.body)
			assert.Equal(t, tt.wantCode, env.Code, env.Msg)
			if tt.wantData != "" {
				assert.Contains(t, string(env.Data), tt.wantData)
			}
		})
	}
}

func TestClaimHandler_Submit_PassesFID(t *testing.T) {
	claims := &fakeClaims{}
	do(t, newEngine(claims), http.MethodPost, "/claims", gin.H{"address": addr, "connected": true, "fid": 77})
	assert.Equal(t, uint64(77), claims.lastFID)
}

func TestClaimHandler_Queries(t *testing.T) {
	r := newEngine(&fakeClaims{})

	env := do(t, r, http.MethodGet, "/contract/call", nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"function_name":"mintAttendance"`)
	assert.Contains(t, string(env.Data), `"sponsored":true`)

	env = do(t, r, http.MethodGet, "/claims/"+addr+"/state", nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"state":"idle"`)

	env = do(t, r, http.MethodGet, "/claims/0xnope/state", nil)
	assert.Equal(t, errno.ErrInvalidAddress.Code, env.Code)

	env = do(t, r, http.MethodGet, "/claims/"+addr, nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"total":1`)
}

func TestIdentityHandler(t *testing.T) {
	r := newEngine(&fakeClaims{})

	env := do(t, r, http.MethodGet, "/identity/"+addr, nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"balance_wei":"1"`)

	env = do(t, r, http.MethodGet, "/identity/0xnope", nil)
	assert.Equal(t, errno.ErrInvalidAddress.Code, env.Code)
}

func TestFrameHandler(t *testing.T) {
	r := newEngine(&fakeClaims{})

	env := do(t, r, http.MethodGet, "/frames/5", nil)
	assert.Equal(t, errno.ErrFrameNotFound.Code, env.Code)

	env = do(t, r, http.MethodPost, "/frames", gin.H{"fid": 5, "address": addr})
	assert.Equal(t, 0, env.Code)

	env = do(t, r, http.MethodGet, "/frames/5", nil)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), addr)

	env = do(t, r, http.MethodPost, "/frames", gin.H{"fid": 0})
	assert.Equal(t, errno.ErrBind.Code, env.Code)

	env = do(t, r, http.MethodGet, "/frames/abc", nil)
	assert.Equal(t, errno.ErrBind.Code, env.Code)
}
