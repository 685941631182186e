package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/registry"
)

// ErrEmptyName is returned when a submitted name is empty after trimming
var ErrEmptyName = errors.New("empty name")

// Pronouncer invokes the pronunciation backend
type Pronouncer interface {
	Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error)
	PronounceAll(ctx context.Context, name string) (*papi.MultiOutput, error)
	PronounceGeneral(ctx context.Context, name string) (*papi.MultiOutput, error)
}

// Persister writes generation results back to the name registry
type Persister interface {
	UpdateGeneration(ctx context.Context, id int64, upd *registry.GenerationUpdate) error
}

// RecordKeeper provides access to the local record mirror
type RecordKeeper interface {
	GetByName(name string) (api.NameRecord, bool)
	UpsertLocal(rec api.NameRecord)
}

// Result is one generation outcome passed back to the operator
type Result struct {
	Output *papi.Output `json:"result"`
	// Notice is set when the backend picked a concrete voice on its own
	Notice bool `json:"notice"`
}

// Controller runs generation requests for one operator session.
// It owns the voice lock: an explicit voice selection is honored only
// while the operator keeps working on the same name
type Controller struct {
	pronouncer Pronouncer
	persister  Persister
	records    RecordKeeper

	lock       sync.Mutex
	lockedName string
}

// NewController creates a session controller
func NewController(pronouncer Pronouncer, persister Persister, records RecordKeeper) (*Controller, error) {
	if pronouncer == nil {
		return nil, fmt.Errorf("no pronouncer")
	}
	if persister == nil {
		return nil, fmt.Errorf("no persister")
	}
	if records == nil {
		return nil, fmt.Errorf("no records")
	}
	return &Controller{pronouncer: pronouncer, persister: persister, records: records}, nil
}

// Submit runs one generation cycle for a name.
// A voiceID is passed through only when the name matches the session lock,
// otherwise the lock moves to the new name and the backend auto-selects.
// The lock moves before the backend call and stays moved on failure
func (c *Controller) Submit(ctx context.Context, name, voiceID string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	voiceID = c.takeLock(name, voiceID)
	out, err := c.pronouncer.Pronounce(ctx, name, voiceID)
	if err != nil {
		return nil, fmt.Errorf("can't pronounce: %w", err)
	}
	res := &Result{Output: out, Notice: out.Pronunciation.SelectionMethod == papi.SelectionAutomaticSpecific}
	if out.Pronunciation.AudioOutput != "" {
		c.persist(ctx, name, out)
	}
	return res, nil
}

// Alternatives returns one rendering per voice for a scope
func (c *Controller) Alternatives(ctx context.Context, name, scope string) (*papi.MultiOutput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	switch scope {
	case papi.ScopeSpecialized:
		return c.pronouncer.PronounceAll(ctx, name)
	case papi.ScopeGeneral:
		return c.pronouncer.PronounceGeneral(ctx, name)
	}
	return nil, fmt.Errorf("unknown scope '%s'", scope)
}

// Locked returns the name currently holding the session lock
func (c *Controller) Locked() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lockedName
}

func (c *Controller) takeLock(name, voiceID string) string {
	c.lock.Lock()
	defer c.lock.Unlock()
	if name != c.lockedName {
		c.lockedName = name
		return ""
	}
	return voiceID
}

// persist mirrors generation fields into the record.
// The registry write is best effort, a failure keeps the audio usable
func (c *Controller) persist(ctx context.Context, name string, out *papi.Output) {
	rec, ok := c.records.GetByName(name)
	if !ok {
		return
	}
	upd := &registry.GenerationUpdate{
		DetectedEthnicity: out.Ethnicity.Ethnicity,
		NativeScript:      out.Transliteration.NativeScript,
		AudioPath:         out.Pronunciation.AudioOutput,
		LastTested:        time.Now().Format("2006-01-02"),
	}
	rec.DetectedEthnicity = upd.DetectedEthnicity
	rec.NativeScript = upd.NativeScript
	rec.AudioPath = upd.AudioPath
	rec.LastTested = upd.LastTested
	c.records.UpsertLocal(rec)
	if err := c.persister.UpdateGeneration(ctx, rec.ID, upd); err != nil {
		goapp.Log.Warn().Err(err).Int64("id", rec.ID).Msg("can't update record")
	}
}
