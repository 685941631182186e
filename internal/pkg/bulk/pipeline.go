package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/registry"
)

// Entry levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// ErrNoNames is returned when a run is started with an empty name list
var ErrNoNames = errors.New("no names")

// Entry is one leveled log line of a run
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Progress is pushed to the reporter after every processed name
type Progress struct {
	Processed int   `json:"processed"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Total     int   `json:"total"`
	Entry     Entry `json:"entry"`
	Done      bool  `json:"done"`
}

// Percent returns completion in whole percents
func (p *Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Processed * 100 / p.Total
}

// Registry creates and updates name records
type Registry interface {
	Create(ctx context.Context, name, expectedEthnicity string) (*api.NameRecord, error)
	UpdateGeneration(ctx context.Context, id int64, upd *registry.GenerationUpdate) error
}

// Pronouncer runs one generation cycle
type Pronouncer interface {
	Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error)
}

// Archiver copies generated audio into long term storage
type Archiver interface {
	Archive(ctx context.Context, id int64, audioPath string) error
}

// Reporter receives progress after every processed name.
// Reporting is best effort, a failure never stops the run
type Reporter interface {
	Report(ctx context.Context, p *Progress) error
}

// Pipeline processes bulk imported names one by one
type Pipeline struct {
	registry   Registry
	pronouncer Pronouncer
	archiver   Archiver
	reporter   Reporter
}

// NewPipeline creates a bulk import pipeline. archiver may be nil
func NewPipeline(reg Registry, pronouncer Pronouncer, archiver Archiver, reporter Reporter) (*Pipeline, error) {
	if reg == nil {
		return nil, fmt.Errorf("no registry")
	}
	if pronouncer == nil {
		return nil, fmt.Errorf("no pronouncer")
	}
	if reporter == nil {
		return nil, fmt.Errorf("no reporter")
	}
	return &Pipeline{registry: reg, pronouncer: pronouncer, archiver: archiver, reporter: reporter}, nil
}

// ParseNames splits pasted text into trimmed non empty names, order preserved
func ParseNames(text string) []string {
	var res []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			res = append(res, l)
		}
	}
	return res
}

// Run processes all names strictly sequentially.
// A failed name adds an error entry and the run moves on
func (p *Pipeline) Run(ctx context.Context, names []string, generate bool) (*Progress, error) {
	return p.Resume(ctx, names, generate, &Progress{})
}

// Resume continues a partially executed run. Names already counted as
// processed by an earlier attempt are skipped, counters carry on
func (p *Pipeline) Resume(ctx context.Context, names []string, generate bool, from *Progress) (*Progress, error) {
	if len(names) == 0 {
		return nil, ErrNoNames
	}
	prg := &Progress{Total: len(names), Processed: from.Processed,
		Succeeded: from.Succeeded, Failed: from.Failed}
	if prg.Processed > len(names) {
		prg.Processed = len(names)
	}
	for _, name := range names[prg.Processed:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := p.processOne(ctx, name, generate, prg)
		prg.Processed++
		prg.Entry = entry
		p.report(ctx, prg)
	}
	prg.Done = true
	prg.Entry = newEntry(LevelInfo, fmt.Sprintf("Done: %d processed, %d succeeded, %d failed",
		prg.Processed, prg.Succeeded, prg.Failed))
	p.report(ctx, prg)
	return prg, nil
}

func (p *Pipeline) processOne(ctx context.Context, name string, generate bool, prg *Progress) Entry {
	rec, err := p.registry.Create(ctx, name, "")
	if err != nil {
		goapp.Log.Error().Err(err).Str("name", name).Msg("can't create record")
		prg.Failed++
		return newEntry(LevelError, fmt.Sprintf("Can't add '%s'", name))
	}
	prg.Succeeded++
	if !generate {
		return newEntry(LevelSuccess, fmt.Sprintf("Added '%s'", name))
	}
	out, err := p.pronouncer.Pronounce(ctx, name, "")
	if err != nil || out.Pronunciation.AudioOutput == "" {
		goapp.Log.Warn().Err(err).Str("name", name).Msg("pronunciation failed")
		return newEntry(LevelWarning, fmt.Sprintf("Added '%s' but pronunciation failed", name))
	}
	p.persist(ctx, rec.ID, out)
	return newEntry(LevelSuccess, fmt.Sprintf("Added '%s' with pronunciation", name))
}

// persist and archive are best effort, the name already counts as succeeded
func (p *Pipeline) persist(ctx context.Context, id int64, out *papi.Output) {
	upd := &registry.GenerationUpdate{
		DetectedEthnicity: out.Ethnicity.Ethnicity,
		NativeScript:      out.Transliteration.NativeScript,
		AudioPath:         out.Pronunciation.AudioOutput,
		LastTested:        time.Now().Format("2006-01-02"),
	}
	if err := p.registry.UpdateGeneration(ctx, id, upd); err != nil {
		goapp.Log.Warn().Err(err).Int64("id", id).Msg("can't update record")
	}
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, id, out.Pronunciation.AudioOutput); err != nil {
			goapp.Log.Warn().Err(err).Int64("id", id).Msg("can't archive audio")
		}
	}
}

func (p *Pipeline) report(ctx context.Context, prg *Progress) {
	if err := p.reporter.Report(ctx, prg); err != nil {
		goapp.Log.Warn().Err(err).Msg("can't report progress")
	}
}

func newEntry(level, msg string) Entry {
	return Entry{Time: time.Now(), Level: level, Message: msg}
}
