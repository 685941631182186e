package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/session"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/status"
)

var (
	// ErrNotFound - no record with the given ID
	ErrNotFound = errors.New("record not found")
	// ErrNotGenerated - the record has no stored generation result yet
	ErrNotGenerated = errors.New("record not generated")
	// ErrNotRevealed - review can be enabled only on a revealed record
	ErrNotRevealed = errors.New("record not revealed")
)

// Generator runs a fresh generation cycle for a name
type Generator interface {
	Submit(ctx context.Context, name, voiceID string) (*session.Result, error)
}

// Persister writes review verdicts back to the name registry
type Persister interface {
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// RecordKeeper provides access to the local record mirror
type RecordKeeper interface {
	Get(id int64) (api.NameRecord, bool)
	UpsertLocal(rec api.NameRecord)
}

// Detail is a record snapshot together with its review view state
type Detail struct {
	Record        api.NameRecord `json:"record"`
	Revealed      bool           `json:"revealed"`
	ReviewEnabled bool           `json:"review_enabled"`
}

// Outcome tells the operator what a verdict did to the review flow
type Outcome struct {
	Record api.NameRecord `json:"record"`
	// Confirmed closes the review with a confirmation
	Confirmed bool `json:"confirmed"`
	// SuggestImprovements keeps the review open for another try
	SuggestImprovements bool `json:"suggest_improvements"`
}

type viewState struct {
	revealed      bool
	reviewEnabled bool
}

// Machine drives per record review state.
// Verdicts are persisted through the registry, reveal state lives here only
type Machine struct {
	generator Generator
	persister Persister
	records   RecordKeeper

	lock  sync.Mutex
	views map[int64]*viewState
}

// NewMachine creates a review state machine
func NewMachine(generator Generator, persister Persister, records RecordKeeper) (*Machine, error) {
	if generator == nil {
		return nil, fmt.Errorf("no generator")
	}
	if persister == nil {
		return nil, fmt.Errorf("no persister")
	}
	if records == nil {
		return nil, fmt.Errorf("no records")
	}
	return &Machine{generator: generator, persister: persister, records: records,
		views: map[int64]*viewState{}}, nil
}

// Reveal opens the pronunciation view for a record. Idempotent
func (m *Machine) Reveal(id int64) error {
	rec, ok := m.records.Get(id)
	if !ok {
		return ErrNotFound
	}
	if !rec.Generated() {
		return ErrNotGenerated
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.view(id).revealed = true
	return nil
}

// Conceal closes the pronunciation view and drops review access. Idempotent
func (m *Machine) Conceal(id int64) error {
	if _, ok := m.records.Get(id); !ok {
		return ErrNotFound
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	v := m.view(id)
	v.revealed = false
	v.reviewEnabled = false
	return nil
}

// EnableReview unlocks the verdict actions. The record must be revealed,
// the caller signals that the audio actually played
func (m *Machine) EnableReview(id int64) error {
	if _, ok := m.records.Get(id); !ok {
		return ErrNotFound
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	v := m.view(id)
	if !v.revealed {
		return ErrNotRevealed
	}
	v.reviewEnabled = true
	return nil
}

// MarkCorrect records a positive verdict and closes the review
func (m *Machine) MarkCorrect(ctx context.Context, id int64) (*Outcome, error) {
	rec, err := m.mark(ctx, id, status.Correct)
	if err != nil {
		return nil, err
	}
	m.lock.Lock()
	v := m.view(id)
	v.revealed = false
	v.reviewEnabled = false
	m.lock.Unlock()
	return &Outcome{Record: rec, Confirmed: true}, nil
}

// MarkNeedsReview records a negative verdict and keeps the review open
// so the operator can try other voices
func (m *Machine) MarkNeedsReview(ctx context.Context, id int64) (*Outcome, error) {
	rec, err := m.mark(ctx, id, status.NeedsReview)
	if err != nil {
		return nil, err
	}
	m.lock.Lock()
	v := m.view(id)
	v.revealed = true
	v.reviewEnabled = true
	m.lock.Unlock()
	return &Outcome{Record: rec, SuggestImprovements: true}, nil
}

// Regenerate runs a fresh auto-selected generation for the record's name.
// The review status is left untouched
func (m *Machine) Regenerate(ctx context.Context, id int64) (*session.Result, error) {
	rec, ok := m.records.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.generator.Submit(ctx, rec.Name, "")
}

// Open returns the stored snapshot without touching the backend
func (m *Machine) Open(id int64) (*Detail, error) {
	rec, ok := m.records.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !rec.Generated() {
		return nil, ErrNotGenerated
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	v := m.view(id)
	return &Detail{Record: rec, Revealed: v.revealed, ReviewEnabled: v.reviewEnabled}, nil
}

// Generate returns the stored result when the record is complete,
// otherwise it runs a fresh generation
func (m *Machine) Generate(ctx context.Context, id int64) (*session.Result, error) {
	rec, ok := m.records.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Generated() {
		return fromStored(&rec), nil
	}
	return m.generator.Submit(ctx, rec.Name, "")
}

func (m *Machine) mark(ctx context.Context, id int64, verdict status.Review) (api.NameRecord, error) {
	rec, ok := m.records.Get(id)
	if !ok {
		return api.NameRecord{}, ErrNotFound
	}
	if err := m.persister.UpdateStatus(ctx, id, verdict.String()); err != nil {
		return api.NameRecord{}, fmt.Errorf("can't update status: %w", err)
	}
	rec.Status = verdict.String()
	rec.LastTested = time.Now().Format("2006-01-02")
	m.records.UpsertLocal(rec)
	goapp.Log.Info().Int64("id", id).Str("status", rec.Status).Msg("verdict")
	return rec, nil
}

// view must be called with the lock held
func (m *Machine) view(id int64) *viewState {
	v, ok := m.views[id]
	if !ok {
		v = &viewState{}
		m.views[id] = v
	}
	return v
}

func fromStored(rec *api.NameRecord) *session.Result {
	return &session.Result{Output: &papi.Output{
		Ethnicity:       papi.EthnicityResult{Ethnicity: rec.DetectedEthnicity, Details: "stored result"},
		Transliteration: papi.TransliterationResult{NativeScript: rec.NativeScript, Successful: rec.NativeScript != ""},
		Pronunciation: papi.PronunciationResult{AudioOutput: rec.AudioPath, Status: "success",
			Details: "stored result"},
	}}
}
