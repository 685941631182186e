package worker

import (
	"context"
	"fmt"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/bulk"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/persistence"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/status"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides run persistence functionality
type DB interface {
	LoadRun(ctx context.Context, id string) (*persistence.Run, error)
	UpdateRun(ctx context.Context, run *persistence.Run) error
	AppendEntry(ctx context.Context, entry *persistence.RunEntry) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient  *gue.Client
	MsgSender  MsgSender
	DB         DB
	Registry   bulk.Registry
	Pronouncer bulk.Pronouncer
	Archiver   bulk.Archiver
	Testing    bool
}

// StartWorkerService starts the event queue listener executing bulk runs.
// One worker only - names of a run are processed strictly in order and
// runs never overlap.
// Returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	bulkPool, err := gue.NewWorkerPool(
		data.GueClient, gue.WorkMap{
			messages.Bulk: handler.Create(data, handleBulk, handler.DefaultOpts[messages.BulkMessage]().
				WithFailure(bulkFailureHandler(data)).WithTimeout(time.Minute*120).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
		}, 1,
		gue.WithPoolQueue(messages.Bulk),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("bulk-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	failPool, err := gue.NewWorkerPool(
		data.GueClient, gue.WorkMap{
			messages.Fail: handler.Create(data, handleFailure, handler.DefaultOpts[messages.BulkMessage]().
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
		}, 1,
		gue.WithPoolQueue(messages.Fail),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("bulk-fail-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		wCh := make(chan struct{}, 2)
		for _, pool := range []*gue.WorkerPool{bulkPool, failPool} {
			go func(p *gue.WorkerPool) {
				if err := p.Run(ctx); err != nil {
					goapp.Log.Error().Err(err).Msg("pool error")
				}
				wCh <- struct{}{}
			}(pool)
		}
		<-wCh
		<-wCh
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleBulk(ctx context.Context, m *messages.BulkMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling bulk run")
	run, err := data.DB.LoadRun(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("unknown run '%s'", m.ID)
	}
	if run.Status == status.Done.String() {
		goapp.Log.Info().Str("ID", m.ID).Msg("already done - skip")
		return nil
	}
	run.Status = status.Working.String()
	if err := data.DB.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("can't save run: %w", err)
	}
	if run.Email != "" {
		if err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
			QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
			Type:         amessages.InformTypeStarted, At: time.Now()}, messages.Inform); err != nil {
			return fmt.Errorf("can't send msg: %w", err)
		}
	}
	rp := &runReporter{data: data, run: run, seq: run.Processed}
	pipeline, err := bulk.NewPipeline(data.Registry, data.Pronouncer, data.Archiver, rp)
	if err != nil {
		return fmt.Errorf("can't init pipeline: %w", err)
	}
	// a retried job continues after the last persisted name
	res, err := pipeline.Resume(ctx, run.Names, run.Generate,
		&bulk.Progress{Processed: run.Processed, Succeeded: run.Succeeded, Failed: run.Failed})
	if err != nil {
		return fmt.Errorf("can't run pipeline: %w", err)
	}
	run.Status = status.Done.String()
	run.Processed, run.Succeeded, run.Failed = res.Processed, res.Succeeded, res.Failed
	if err := data.DB.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("can't save run: %w", err)
	}
	if run.Email != "" {
		if err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
			QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
			Type:         amessages.InformTypeFinished, At: time.Now()}, messages.Inform); err != nil {
			return fmt.Errorf("can't send msg: %w", err)
		}
	}
	goapp.Log.Info().Str("ID", m.ID).Int("processed", res.Processed).Msg("Bulk run completed")
	return nil
}

// handleFailure closes a run that exhausted its retries
func handleFailure(ctx context.Context, m *messages.BulkMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling failure")
	run, err := data.DB.LoadRun(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load run: %w", err)
	}
	if run == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no run - ignore")
		return nil
	}
	if run.Status == status.Done.String() {
		goapp.Log.Info().Str("ID", m.ID).Msg("error on done run - ignore")
		return nil
	}
	run.Status = status.Done.String()
	if err := data.DB.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("can't save run: %w", err)
	}
	entry := &persistence.RunEntry{RunID: run.ID, Seq: run.Processed + 1, Level: bulk.LevelError,
		Message: "Run failed", Created: time.Now()}
	if err := data.DB.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("can't save entry: %w", err)
	}
	if err := data.MsgSender.SendMessage(ctx, &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: run.ID},
		Progress: bulk.Progress{Processed: run.Processed, Succeeded: run.Succeeded, Failed: run.Failed,
			Total: len(run.Names), Done: true,
			Entry: bulk.Entry{Time: entry.Created, Level: entry.Level, Message: entry.Message}}},
		messages.Progress); err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	if run.Email != "" {
		if err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
			QueueMessage: amessages.QueueMessage{ID: run.ID},
			Type:         amessages.InformTypeFailed, At: time.Now()}, messages.Inform); err != nil {
			return fmt.Errorf("can't send msg: %w", err)
		}
	}
	return nil
}

func bulkFailureHandler(data *ServiceData) func(context.Context, *messages.BulkMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.BulkMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if j.ErrorCount > 2 {
			goapp.Log.Warn().Str("ID", m.ID).Int32("errCount", j.ErrorCount).Msg("give up, route to fail queue")
			if errS := data.MsgSender.SendMessage(ctx, messages.NewBulkMessageFrom(m), messages.Fail); errS != nil {
				return false, 0, fmt.Errorf("can't send msg: %w", errS)
			}
			return false, 0, nil
		}
		return true, 0, nil
	}
}

// runReporter persists progress and pushes it to live subscribers.
// Counters and the latest entry travel inline in the message
type runReporter struct {
	data *ServiceData
	run  *persistence.Run
	seq  int
}

func (r *runReporter) Report(ctx context.Context, p *bulk.Progress) error {
	r.seq++
	entry := &persistence.RunEntry{RunID: r.run.ID, Seq: r.seq, Level: p.Entry.Level,
		Message: p.Entry.Message, Created: p.Entry.Time}
	if err := r.data.DB.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("can't save entry: %w", err)
	}
	r.run.Processed, r.run.Succeeded, r.run.Failed = p.Processed, p.Succeeded, p.Failed
	if !p.Done {
		if err := r.data.DB.UpdateRun(ctx, r.run); err != nil {
			return fmt.Errorf("can't save run: %w", err)
		}
	}
	if err := r.data.MsgSender.SendMessage(ctx, &messages.ProgressMessage{
		QueueMessage: amessages.QueueMessage{ID: r.run.ID}, Progress: *p}, messages.Progress); err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Registry == nil {
		return fmt.Errorf("no registry")
	}
	if data.Pronouncer == nil {
		return fmt.Errorf("no pronouncer")
	}
	return nil
}
