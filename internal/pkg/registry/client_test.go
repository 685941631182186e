package registry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testReq struct {
	method string
	body   string
	URL    string
}

func initTestServer(t *testing.T, rData map[string]string, code int) (*Client, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		b, _ := io.ReadAll(req.Body)
		resRequest = append(resRequest, testReq{method: req.Method, URL: req.URL.String(), body: string(b)})
		resp, f := rData[req.URL.String()]
		if f {
			rw.WriteHeader(code)
			_, _ = rw.Write([]byte(resp))
		} else {
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	cl := Client{}
	cl.httpclient = server.Client()
	cl.namesURL = server.URL + "/api/names"
	cl.timeout = time.Second
	cl.backoff = func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}
	t.Cleanup(func() { server.Close() })
	return &cl, &resRequest
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("http://srv/api/names")
	assert.Nil(t, err)
	_, err = NewClient("")
	assert.NotNil(t, err)
}

func TestList(t *testing.T) {
	cl, _ := initTestServer(t, map[string]string{"/api/names": `[{"id":1,"name":"Chen","status":"untested"},
		{"id":2,"name":"Priya","status":"correct"}]`}, http.StatusOK)
	res, err := cl.List(context.Background())
	require.Nil(t, err)
	require.Equal(t, 2, len(res))
	assert.Equal(t, int64(1), res[0].ID)
	assert.Equal(t, "Priya", res[1].Name)
}

func TestList_Fail(t *testing.T) {
	cl, _ := initTestServer(t, map[string]string{"/api/names": "err"}, http.StatusInternalServerError)
	_, err := cl.List(context.Background())
	assert.NotNil(t, err)
}

func TestCreate(t *testing.T) {
	cl, reqs := initTestServer(t, map[string]string{"/api/names": `{"id":10,"name":"Chen","status":"untested"}`},
		http.StatusOK)
	res, err := cl.Create(context.Background(), "Chen", "Chinese")
	require.Nil(t, err)
	assert.Equal(t, int64(10), res.ID)
	require.Equal(t, 1, len(*reqs))
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Contains(t, (*reqs)[0].body, `"expected_ethnicity":"Chinese"`)
}

func TestCreate_NoEthnicity(t *testing.T) {
	cl, reqs := initTestServer(t, map[string]string{"/api/names": `{"id":10,"name":"Chen","status":"untested"}`},
		http.StatusOK)
	_, err := cl.Create(context.Background(), "Chen", "")
	require.Nil(t, err)
	assert.Contains(t, (*reqs)[0].body, `"expected_ethnicity":null`)
}

func TestCreate_NoID(t *testing.T) {
	cl, _ := initTestServer(t, map[string]string{"/api/names": `{"name":"Chen"}`}, http.StatusOK)
	_, err := cl.Create(context.Background(), "Chen", "")
	assert.NotNil(t, err)
}

func TestUpdateGeneration(t *testing.T) {
	cl, reqs := initTestServer(t, map[string]string{"/api/names/10/update": `{}`}, http.StatusOK)
	err := cl.UpdateGeneration(context.Background(), 10, &GenerationUpdate{DetectedEthnicity: "Chinese",
		NativeScript: "陈", AudioPath: "/audio/chen_1.mp3", LastTested: "2026-09-01"})
	require.Nil(t, err)
	require.Equal(t, 1, len(*reqs))
	assert.Equal(t, http.MethodPut, (*reqs)[0].method)
	assert.Contains(t, (*reqs)[0].body, `"audio_path":"/audio/chen_1.mp3"`)
}

func TestUpdateStatus(t *testing.T) {
	cl, reqs := initTestServer(t, map[string]string{"/api/names/10/status": `{}`}, http.StatusOK)
	err := cl.UpdateStatus(context.Background(), 10, "correct")
	require.Nil(t, err)
	require.Equal(t, 1, len(*reqs))
	assert.Contains(t, (*reqs)[0].body, `"status":"correct"`)
}

func TestUpdateStatus_Fail(t *testing.T) {
	cl, _ := initTestServer(t, map[string]string{}, http.StatusOK)
	err := cl.UpdateStatus(context.Background(), 11, "correct")
	assert.NotNil(t, err)
}
