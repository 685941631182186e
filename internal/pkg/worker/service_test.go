package worker

import (
	"fmt"
	"testing"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/messages"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/persistence"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/test"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

var (
	dbMock     *mocks.DB
	senderMock *mocks.Sender
	regMock    *mocks.Registry
	pronMock   *mocks.Pronouncer
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	senderMock = &mocks.Sender{}
	regMock = &mocks.Registry{}
	pronMock = &mocks.Pronouncer{}
	srvData = &ServiceData{DB: dbMock, GueClient: &gue.Client{}, MsgSender: senderMock,
		Registry: regMock, Pronouncer: pronMock, Testing: true}
	dbMock.On("UpdateRun", mock.Anything, mock.Anything).Return(nil)
	dbMock.On("AppendEntry", mock.Anything, mock.Anything).Return(nil)
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	regMock.On("Create", mock.Anything, mock.Anything, "").Return(&api.NameRecord{ID: 1}, nil)
	pronMock.On("Pronounce", mock.Anything, mock.Anything, "").Return(&papi.Output{
		Pronunciation: papi.PronunciationResult{AudioOutput: "/audio/a.mp3"}}, nil)
	regMock.On("UpdateGeneration", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func newTestRun() *persistence.Run {
	return &persistence.Run{ID: "1", Names: []string{"Chen", "Priya"}, Generate: true, Status: "QUEUED"}
}

func Test_validate(t *testing.T) {
	initTest(t)
	assert.Nil(t, validate(srvData))
	srvData.DB = nil
	assert.NotNil(t, validate(srvData))
}

func Test_handleBulk(t *testing.T) {
	initTest(t)
	dbMock.On("LoadRun", mock.Anything, "1").Return(newTestRun(), nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	regMock.AssertNumberOfCalls(t, "Create", 2)
	// status to working, counters per name, final done
	calls := dbMock.Calls
	var updates []*persistence.Run
	for _, c := range calls {
		if c.Method == "UpdateRun" {
			updates = append(updates, c.Arguments[1].(*persistence.Run))
		}
	}
	require.True(t, len(updates) >= 2)
	last := updates[len(updates)-1]
	assert.Equal(t, "DONE", last.Status)
	assert.Equal(t, 2, last.Processed)
	assert.Equal(t, 2, last.Succeeded)
}

func Test_handleBulk_SkipDone(t *testing.T) {
	initTest(t)
	run := newTestRun()
	run.Status = "DONE"
	dbMock.On("LoadRun", mock.Anything, "1").Return(run, nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	regMock.AssertNumberOfCalls(t, "Create", 0)
}

func Test_handleBulk_ResumesAfterRetry(t *testing.T) {
	initTest(t)
	run := newTestRun()
	run.Status = "Working"
	run.Processed, run.Succeeded = 1, 1
	dbMock.On("LoadRun", mock.Anything, "1").Return(run, nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	// only the second name is created again
	regMock.AssertNumberOfCalls(t, "Create", 1)
	assert.Equal(t, "Priya", regMock.Calls[0].Arguments[1])
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, "DONE", run.Status)
}

func Test_handleBulk_NoRun(t *testing.T) {
	initTest(t)
	dbMock.On("LoadRun", mock.Anything, "1").Return(nil, nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.NotNil(t, err)
}

func Test_handleBulk_Inform(t *testing.T) {
	initTest(t)
	run := newTestRun()
	run.Email = "o@o.lt"
	dbMock.On("LoadRun", mock.Anything, "1").Return(run, nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	var informs []string
	for _, c := range senderMock.Calls {
		if c.Arguments[2] == messages.Inform {
			informs = append(informs, c.Arguments[1].(*amessages.InformMessage).Type)
		}
	}
	assert.Equal(t, []string{amessages.InformTypeStarted, amessages.InformTypeFinished}, informs)
}

func Test_handleBulk_NoEmailNoInform(t *testing.T) {
	initTest(t)
	dbMock.On("LoadRun", mock.Anything, "1").Return(newTestRun(), nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	for _, c := range senderMock.Calls {
		assert.NotEqual(t, messages.Inform, c.Arguments[2])
	}
}

func Test_handleBulk_SendsProgress(t *testing.T) {
	initTest(t)
	dbMock.On("LoadRun", mock.Anything, "1").Return(newTestRun(), nil)
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	var prgs []messages.ProgressMessage
	for _, c := range senderMock.Calls {
		if c.Arguments[2] == messages.Progress {
			prgs = append(prgs, *c.Arguments[1].(*messages.ProgressMessage))
		}
	}
	// one per name plus the summary
	require.Equal(t, 3, len(prgs))
	assert.Equal(t, 1, prgs[0].Progress.Processed)
	assert.False(t, prgs[0].Progress.Done)
	assert.True(t, prgs[2].Progress.Done)
}

func Test_handleFailure(t *testing.T) {
	initTest(t)
	run := newTestRun()
	run.Status = "Working"
	run.Processed = 1
	dbMock.On("LoadRun", mock.Anything, "1").Return(run, nil)
	err := handleFailure(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	assert.Equal(t, "DONE", run.Status)
	require.Equal(t, 1, len(senderMock.Calls))
	assert.Equal(t, messages.Progress, senderMock.Calls[0].Arguments[2])
}

func Test_handleFailure_NoRun(t *testing.T) {
	initTest(t)
	dbMock.On("LoadRun", mock.Anything, "1").Return(nil, nil)
	err := handleFailure(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
}

func Test_handleFailure_DoneIgnored(t *testing.T) {
	initTest(t)
	run := newTestRun()
	run.Status = "DONE"
	dbMock.On("LoadRun", mock.Anything, "1").Return(run, nil)
	err := handleFailure(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.Nil(t, err)
	dbMock.AssertNumberOfCalls(t, "UpdateRun", 0)
}

func Test_handleBulk_LoadFail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadRun", mock.Anything, "1").Return(nil, fmt.Errorf("olia err"))
	err := handleBulk(test.Ctx(t), &messages.BulkMessage{QueueMessage: amessages.QueueMessage{ID: "1"}}, srvData)
	assert.NotNil(t, err)
}
