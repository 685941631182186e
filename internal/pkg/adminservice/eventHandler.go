package adminservice

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/bulk"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"
	"github.com/vgarvardt/gue/v5"
)

// HandlerData keeps data required for progress event handler
type HandlerData struct {
	GueClient   *gue.Client
	WorkerCount int
	Store       Store
	WSHandler   WSConnHandler
}

// StartProgressHandler starts the event queue listener for bulk progress events
// returns channel for tracking if all jobs are finished
func StartProgressHandler(ctx context.Context, data *HandlerData) (chan struct{}, error) {
	if err := validateHandler(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for progress messages")

	wm := gue.WorkMap{
		messages.Progress: utils.CreateHandler(data, handleProgress),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Progress),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("progress-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

type progressEvent struct {
	ID string `json:"id"`
	bulk.Progress
}

func handleProgress(ctx context.Context, m *messages.ProgressMessage, data *HandlerData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling progress event")

	conns, found := data.WSHandler.GetConnections(m.ID)
	if found {
		res := &progressEvent{ID: m.ID, Progress: m.Progress}
		for _, c := range conns {
			if err := sendMsg(c, res); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		}
	} else {
		goapp.Log.Debug().Str("ID", m.ID).Msg("no connections found")
	}
	if m.Progress.Done {
		// bulk run created records the local mirror does not know about yet
		if err := data.Store.LoadAll(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("can't refresh records")
		}
	}
	return nil
}

func sendMsg(c WsConn, res *progressEvent) error {
	goapp.Log.Debug().Str("ID", res.ID).Msg("Sending progress to websockket")
	err := c.WriteJSON(res)
	if err != nil {
		return fmt.Errorf("cannot write to websockket: %w", err)
	}
	return nil
}

func validateHandler(data *HandlerData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Store == nil {
		return fmt.Errorf("no store")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}
