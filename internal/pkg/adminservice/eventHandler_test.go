package adminservice

import (
	"fmt"
	"testing"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/bulk"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/test"
)

var (
	storeEHMock *mockStore
	wsEHMock    *mockWSConnHandler
	connMock    *mockWSConn
	hndData     *HandlerData
)

func initHandlerTest(t *testing.T) {
	storeEHMock = &mockStore{}
	wsEHMock = &mockWSConnHandler{}
	connMock = &mockWSConn{}
	hndData = &HandlerData{GueClient: &gue.Client{}, WorkerCount: 1, Store: storeEHMock, WSHandler: wsEHMock}
	wsEHMock.On("GetConnections", mock.Anything).Return([]WsConn{connMock}, true)
	storeEHMock.On("LoadAll", mock.Anything).Return(nil)
	connMock.On("WriteJSON", mock.Anything).Return(nil)
}

func Test_handleProgress(t *testing.T) {
	initHandlerTest(t)
	err := handleProgress(test.Ctx(t), &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: "1"},
		Progress:     bulk.Progress{Processed: 2, Succeeded: 2, Total: 3}}, hndData)
	assert.Nil(t, err)
	require.Equal(t, 1, len(connMock.Calls))
	assert.Equal(t, &progressEvent{ID: "1",
		Progress: bulk.Progress{Processed: 2, Succeeded: 2, Total: 3}},
		connMock.Calls[0].Arguments[0])
	storeEHMock.AssertNotCalled(t, "LoadAll", mock.Anything)
}

func Test_handleProgress_NoConn(t *testing.T) {
	initHandlerTest(t)
	wsEHMock.ExpectedCalls = nil
	wsEHMock.On("GetConnections", mock.Anything).Return([]WsConn{}, false)
	err := handleProgress(test.Ctx(t), &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: "1"}}, hndData)
	assert.Nil(t, err)
	require.Equal(t, 0, len(connMock.Calls))
}

func Test_handleProgress_DoneRefreshes(t *testing.T) {
	initHandlerTest(t)
	err := handleProgress(test.Ctx(t), &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: "1"},
		Progress:     bulk.Progress{Processed: 3, Total: 3, Done: true}}, hndData)
	assert.Nil(t, err)
	storeEHMock.AssertCalled(t, "LoadAll", mock.Anything)
}

func Test_handleProgress_RefreshFailIgnored(t *testing.T) {
	initHandlerTest(t)
	storeEHMock.ExpectedCalls = nil
	storeEHMock.On("LoadAll", mock.Anything).Return(fmt.Errorf("olia"))
	err := handleProgress(test.Ctx(t), &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: "1"},
		Progress:     bulk.Progress{Done: true}}, hndData)
	assert.Nil(t, err)
}

func Test_handleProgress_WriteFailIgnored(t *testing.T) {
	initHandlerTest(t)
	connMock.ExpectedCalls = nil
	connMock.On("WriteJSON", mock.Anything).Return(fmt.Errorf("olia"))
	err := handleProgress(test.Ctx(t), &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: "1"}}, hndData)
	assert.Nil(t, err)
}

func Test_validateHandler(t *testing.T) {
	initHandlerTest(t)
	type args struct {
		data *HandlerData
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &HandlerData{GueClient: &gue.Client{}, WorkerCount: 1, Store: storeEHMock, WSHandler: wsEHMock}}, wantErr: false},
		{name: "Fail no client", args: args{data: &HandlerData{WorkerCount: 1, Store: storeEHMock, WSHandler: wsEHMock}}, wantErr: true},
		{name: "Fail no count", args: args{data: &HandlerData{GueClient: &gue.Client{}, Store: storeEHMock, WSHandler: wsEHMock}}, wantErr: true},
		{name: "Fail no store", args: args{data: &HandlerData{GueClient: &gue.Client{}, WorkerCount: 1, WSHandler: wsEHMock}}, wantErr: true},
		{name: "Fail no handler", args: args{data: &HandlerData{GueClient: &gue.Client{}, WorkerCount: 1, Store: storeEHMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateHandler(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("StartProgressHandler() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockWSConn struct{ mock.Mock }

func (m *mockWSConn) ReadMessage() (messageType int, p []byte, err error) {
	args := m.Called()
	return args.Int(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockWSConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockWSConn) WriteJSON(v interface{}) error {
	args := m.Called(v)
	return args.Error(0)
}
