package bulk

import (
	"context"
	"fmt"
	"testing"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/registry"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	regMock  *mocks.Registry
	pronMock *mocks.Pronouncer
	archMock *mocks.Archiver
	reported []Progress
)

type testReporter struct{}

func (r *testReporter) Report(ctx context.Context, p *Progress) error {
	reported = append(reported, *p)
	return nil
}

func initTest(t *testing.T) *Pipeline {
	regMock = &mocks.Registry{}
	pronMock = &mocks.Pronouncer{}
	archMock = &mocks.Archiver{}
	reported = nil
	p, err := NewPipeline(regMock, pronMock, archMock, &testReporter{})
	require.Nil(t, err)
	return p
}

func newOut() *papi.Output {
	return &papi.Output{
		Ethnicity:       papi.EthnicityResult{Ethnicity: "Chinese"},
		Transliteration: papi.TransliterationResult{NativeScript: "陈", Successful: true},
		Pronunciation:   papi.PronunciationResult{AudioOutput: "/audio/a.mp3", Status: "success"},
	}
}

func TestNewPipeline(t *testing.T) {
	initTest(t)
	_, err := NewPipeline(nil, pronMock, nil, &testReporter{})
	assert.NotNil(t, err)
	_, err = NewPipeline(regMock, nil, nil, &testReporter{})
	assert.NotNil(t, err)
	_, err = NewPipeline(regMock, pronMock, nil, nil)
	assert.NotNil(t, err)
	_, err = NewPipeline(regMock, pronMock, nil, &testReporter{})
	assert.Nil(t, err)
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{name: "empty", args: "", want: nil},
		{name: "one", args: "Chen", want: []string{"Chen"}},
		{name: "several", args: "Chen\nPriya\nOlia", want: []string{"Chen", "Priya", "Olia"}},
		{name: "trims", args: "  Chen \n\t Priya  ", want: []string{"Chen", "Priya"}},
		{name: "drops empty", args: "Chen\n\n  \nPriya\n", want: []string{"Chen", "Priya"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.args))
		})
	}
}

func TestRun_Empty(t *testing.T) {
	p := initTest(t)
	_, err := p.Run(context.Background(), nil, true)
	assert.Equal(t, ErrNoNames, err)
	regMock.AssertNumberOfCalls(t, "Create", 0)
	pronMock.AssertNumberOfCalls(t, "Pronounce", 0)
	assert.Equal(t, 0, len(reported))
}

func TestRun_AllOK(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, mock.Anything, "").Return(&api.NameRecord{ID: 1}, nil)
	pronMock.On("Pronounce", mock.Anything, mock.Anything, "").Return(newOut(), nil)
	regMock.On("UpdateGeneration", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	archMock.On("Archive", mock.Anything, mock.Anything, "/audio/a.mp3").Return(nil)
	res, err := p.Run(context.Background(), []string{"Chen", "Priya", "Olia"}, true)
	require.Nil(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, res.Done)
	// one report per name plus the summary
	require.Equal(t, 4, len(reported))
	assert.Equal(t, LevelSuccess, reported[0].Entry.Level)
	assert.Contains(t, reported[0].Entry.Message, "Chen")
	assert.Contains(t, reported[2].Entry.Message, "Olia")
	assert.Contains(t, reported[3].Entry.Message, "3 processed")
	assert.Equal(t, 100, reported[3].Percent())
}

func TestRun_CreateFailContinues(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, "Chen", "").Return(nil, fmt.Errorf("olia err")).Once()
	regMock.On("Create", mock.Anything, "Priya", "").Return(&api.NameRecord{ID: 2}, nil).Once()
	pronMock.On("Pronounce", mock.Anything, "Priya", "").Return(newOut(), nil)
	regMock.On("UpdateGeneration", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	archMock.On("Archive", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	res, err := p.Run(context.Background(), []string{"Chen", "Priya"}, true)
	require.Nil(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, LevelError, reported[0].Entry.Level)
	assert.Equal(t, LevelSuccess, reported[1].Entry.Level)
}

func TestRun_PronounceFailStillSucceeds(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, "Chen", "").Return(&api.NameRecord{ID: 1}, nil)
	pronMock.On("Pronounce", mock.Anything, "Chen", "").Return(nil, fmt.Errorf("olia err"))
	res, err := p.Run(context.Background(), []string{"Chen"}, true)
	require.Nil(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, LevelWarning, reported[0].Entry.Level)
	assert.Contains(t, reported[0].Entry.Message, "pronunciation failed")
	regMock.AssertNumberOfCalls(t, "UpdateGeneration", 0)
}

func TestRun_NoGenerate(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, mock.Anything, "").Return(&api.NameRecord{ID: 1}, nil)
	res, err := p.Run(context.Background(), []string{"Chen", "Priya"}, false)
	require.Nil(t, err)
	assert.Equal(t, 2, res.Succeeded)
	pronMock.AssertNumberOfCalls(t, "Pronounce", 0)
}

func TestRun_PersistFailIgnored(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, "Chen", "").Return(&api.NameRecord{ID: 1}, nil)
	pronMock.On("Pronounce", mock.Anything, "Chen", "").Return(newOut(), nil)
	regMock.On("UpdateGeneration", mock.Anything, int64(1), mock.Anything).Return(fmt.Errorf("olia err"))
	archMock.On("Archive", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia err"))
	res, err := p.Run(context.Background(), []string{"Chen"}, true)
	require.Nil(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, LevelSuccess, reported[0].Entry.Level)
}

func TestRun_UpdatePassed(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, "Chen", "").Return(&api.NameRecord{ID: 5}, nil)
	pronMock.On("Pronounce", mock.Anything, "Chen", "").Return(newOut(), nil)
	regMock.On("UpdateGeneration", mock.Anything, int64(5), mock.Anything).Return(nil)
	archMock.On("Archive", mock.Anything, int64(5), "/audio/a.mp3").Return(nil)
	_, err := p.Run(context.Background(), []string{"Chen"}, true)
	require.Nil(t, err)
	upd := regMock.Calls[1].Arguments[2].(*registry.GenerationUpdate)
	assert.Equal(t, "陈", upd.NativeScript)
	archMock.AssertExpectations(t)
}

func TestResume_SkipsProcessed(t *testing.T) {
	p := initTest(t)
	regMock.On("Create", mock.Anything, "Olia", "").Return(&api.NameRecord{ID: 3}, nil).Once()
	res, err := p.Resume(context.Background(), []string{"Chen", "Priya", "Olia"}, false,
		&Progress{Processed: 2, Succeeded: 1, Failed: 1})
	require.Nil(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	regMock.AssertNumberOfCalls(t, "Create", 1)
	// one report for the remaining name plus the summary
	require.Equal(t, 2, len(reported))
	assert.Contains(t, reported[0].Entry.Message, "Olia")
	assert.Equal(t, 3, reported[0].Total)
}

func TestResume_AllProcessed(t *testing.T) {
	p := initTest(t)
	res, err := p.Resume(context.Background(), []string{"Chen", "Priya"}, true,
		&Progress{Processed: 2, Succeeded: 2})
	require.Nil(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.True(t, res.Done)
	regMock.AssertNumberOfCalls(t, "Create", 0)
	require.Equal(t, 1, len(reported))
	assert.Contains(t, reported[0].Entry.Message, "2 processed")
}

func TestRun_Cancelled(t *testing.T) {
	p := initTest(t)
	ctx, cancelF := context.WithCancel(context.Background())
	cancelF()
	_, err := p.Run(ctx, []string{"Chen"}, true)
	assert.NotNil(t, err)
	regMock.AssertNumberOfCalls(t, "Create", 0)
}
