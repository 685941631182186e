package mocks

import (
	"context"
	"io"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/stretchr/testify/mock"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/persistence"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/registry"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/session"
)

// Lister is registry listing mock
type Lister struct{ mock.Mock }

func (m *Lister) List(ctx context.Context) ([]api.NameRecord, error) {
	args := m.Called(ctx)
	return to[[]api.NameRecord](args.Get(0)), args.Error(1)
}

// Registry is name registry client mock
type Registry struct{ mock.Mock }

func (m *Registry) Create(ctx context.Context, name, expectedEthnicity string) (*api.NameRecord, error) {
	args := m.Called(ctx, name, expectedEthnicity)
	return to[*api.NameRecord](args.Get(0)), args.Error(1)
}

func (m *Registry) UpdateGeneration(ctx context.Context, id int64, upd *registry.GenerationUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *Registry) UpdateStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// Pronouncer is pronunciation backend mock
type Pronouncer struct{ mock.Mock }

func (m *Pronouncer) Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error) {
	args := m.Called(ctx, name, voiceID)
	return to[*papi.Output](args.Get(0)), args.Error(1)
}

func (m *Pronouncer) PronounceAll(ctx context.Context, name string) (*papi.MultiOutput, error) {
	args := m.Called(ctx, name)
	return to[*papi.MultiOutput](args.Get(0)), args.Error(1)
}

func (m *Pronouncer) PronounceGeneral(ctx context.Context, name string) (*papi.MultiOutput, error) {
	args := m.Called(ctx, name)
	return to[*papi.MultiOutput](args.Get(0)), args.Error(1)
}

// BackendPronouncer is full backend client mock including voice listing
type BackendPronouncer struct{ mock.Mock }

func (m *BackendPronouncer) Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error) {
	args := m.Called(ctx, name, voiceID)
	return to[*papi.Output](args.Get(0)), args.Error(1)
}

func (m *BackendPronouncer) PronounceAll(ctx context.Context, name string) (*papi.MultiOutput, error) {
	args := m.Called(ctx, name)
	return to[*papi.MultiOutput](args.Get(0)), args.Error(1)
}

func (m *BackendPronouncer) PronounceGeneral(ctx context.Context, name string) (*papi.MultiOutput, error) {
	args := m.Called(ctx, name)
	return to[*papi.MultiOutput](args.Get(0)), args.Error(1)
}

func (m *BackendPronouncer) Voices(ctx context.Context) ([]papi.Voice, error) {
	args := m.Called(ctx)
	return to[[]papi.Voice](args.Get(0)), args.Error(1)
}

// Generator is generation cycle mock
type Generator struct{ mock.Mock }

func (m *Generator) Submit(ctx context.Context, name, voiceID string) (*session.Result, error) {
	args := m.Called(ctx, name, voiceID)
	return to[*session.Result](args.Get(0)), args.Error(1)
}

// Archiver is audio archiver mock
type Archiver struct{ mock.Mock }

func (m *Archiver) Archive(ctx context.Context, id int64, audioPath string) error {
	args := m.Called(ctx, id, audioPath)
	return args.Error(0)
}

// Sender is queue sender mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// DB is postgres run DB mock
type DB struct{ mock.Mock }

func (m *DB) LoadRun(ctx context.Context, id string) (*persistence.Run, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Run](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateRun(ctx context.Context, run *persistence.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *DB) AppendEntry(ctx context.Context, entry *persistence.RunEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// InformDB is email lock DB mock
type InformDB struct{ mock.Mock }

func (m *InformDB) LoadRun(ctx context.Context, id string) (*persistence.Run, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Run](args.Get(0)), args.Error(1)
}

func (m *InformDB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *InformDB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, *value)
	return args.Error(0)
}

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	args := m.Called(ctx, name, r, size)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func to[T any](v any) T {
	var res T
	if v != nil {
		res = v.(T)
	}
	return res
}
