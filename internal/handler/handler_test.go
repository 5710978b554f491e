package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/handler/mocks"
)

const (
	clientToken = "client-token"
	storeToken  = "store-token"
)

var (
	clientID = auth.Identity{UserID: "user-1", Role: auth.RoleClient}
	storeID  = auth.Identity{UserID: "merchant-1", Role: auth.RoleStore}
)

type testAPI struct {
	users    *mocks.MockUserService
	stores   *mocks.MockStoreService
	products *mocks.MockProductService
	orders   *mocks.MockOrderService
	payments *mocks.MockPaymentService
	router   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctrl := gomock.NewController(t)

	tokens := mocks.NewMockTokenVerifier(ctrl)
	tokens.EXPECT().ParseAccess(clientToken).Return(clientID, nil).AnyTimes()
	tokens.EXPECT().ParseAccess(storeToken).Return(storeID, nil).AnyTimes()
	tokens.EXPECT().ParseAccess(gomock.Any()).Return(auth.Identity{}, errors.New("bad token")).AnyTimes()

	api := &testAPI{
		users:    mocks.NewMockUserService(ctrl),
		stores:   mocks.NewMockStoreService(ctrl),
		products: mocks.NewMockProductService(ctrl),
		orders:   mocks.NewMockOrderService(ctrl),
		payments: mocks.NewMockPaymentService(ctrl),
	}
	api.router = NewHandler(Deps{
		Users:    api.users,
		Stores:   api.stores,
		Products: api.products,
		Orders:   api.orders,
		Payments: api.payments,
		Tokens:   tokens,
	}).Routes()
	return api
}

func (a *testAPI) do(t *testing.T, method, target, token, body string) *http.Response {
	t.Helper()
	req := newRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(a.router, req)
}

func newRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	return httptest.NewRequest(method, target, rd)
}

func serve(h http.Handler, req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func requireError(t *testing.T, res *http.Response, status int, code string) errorDetail {
	t.Helper()
	require.Equal(t, status, res.StatusCode)
	body := decodeBody[errorBody](t, res)
	require.Equal(t, code, body.Error.Code)
	require.Equal(t, status, body.Error.HTTP)
	return body.Error
}
