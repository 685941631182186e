package adminservice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/bulk"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/persistence"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/review"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/session"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/status"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Sessions runs single name generation requests
type Sessions interface {
	Submit(ctx context.Context, name, voiceID string) (*session.Result, error)
	Alternatives(ctx context.Context, name, scope string) (*papi.MultiOutput, error)
}

// Reviews drives the per record review flow
type Reviews interface {
	Reveal(id int64) error
	Conceal(id int64) error
	EnableReview(id int64) error
	MarkCorrect(ctx context.Context, id int64) (*review.Outcome, error)
	MarkNeedsReview(ctx context.Context, id int64) (*review.Outcome, error)
	Regenerate(ctx context.Context, id int64) (*session.Result, error)
	Open(id int64) (*review.Detail, error)
	Generate(ctx context.Context, id int64) (*session.Result, error)
}

// Store is the local record mirror
type Store interface {
	List() []api.NameRecord
	LoadAll(ctx context.Context) error
	UpsertLocal(rec api.NameRecord)
}

// RecordCreator adds records to the backend registry
type RecordCreator interface {
	Create(ctx context.Context, name, expectedEthnicity string) (*api.NameRecord, error)
}

// VoiceLister returns available TTS voices
type VoiceLister interface {
	Voices(ctx context.Context) ([]papi.Voice, error)
}

// RunDB keeps bulk run state
type RunDB interface {
	InsertRun(ctx context.Context, run *persistence.Run) error
	LoadRun(ctx context.Context, id string) (*persistence.Run, error)
	LoadEntries(ctx context.Context, runID string) ([]*persistence.RunEntry, error)
	ActiveRuns(ctx context.Context) (int, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// WSConnHandler WebSocketConnection wrapper
type WSConnHandler interface {
	HandleConnection(WsConn) error
	GetConnections(id string) ([]WsConn, bool)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Store     Store
	Sessions  Sessions
	Reviews   Reviews
	Registry  RecordCreator
	Voices    VoiceLister
	DB        RunDB
	MsgSender MsgSender
	WSHandler WSConnHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP admin service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 180 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("phonj_admin", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/live", live(data))
	e.GET("/names", listNames(data))
	e.POST("/names", createName(data))
	e.GET("/voices", voices(data))
	e.POST("/pronounce", pronounce(data))
	e.POST("/pronounce/alternatives", alternatives(data))
	e.POST("/names/:id/reveal", viewOp(data, func(d *Data, id int64) error { return d.Reviews.Reveal(id) }))
	e.POST("/names/:id/conceal", viewOp(data, func(d *Data, id int64) error { return d.Reviews.Conceal(id) }))
	e.POST("/names/:id/review-enable", viewOp(data, func(d *Data, id int64) error { return d.Reviews.EnableReview(id) }))
	e.POST("/names/:id/correct", mark(data, true))
	e.POST("/names/:id/needs-review", mark(data, false))
	e.POST("/names/:id/regenerate", generateOp(data, func(d *Data, ctx context.Context, id int64) (*session.Result, error) {
		return d.Reviews.Regenerate(ctx, id)
	}))
	e.POST("/names/:id/generate", generateOp(data, func(d *Data, ctx context.Context, id int64) (*session.Result, error) {
		return d.Reviews.Generate(ctx, id)
	}))
	e.GET("/names/:id/detail", detail(data))
	e.POST("/bulk", startBulk(data))
	e.GET("/bulk/:id", bulkStatus(data))
	e.GET("/subscribe", subscribeHandler(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func listNames(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("names method")()
		if utils.ParamTrue(c.QueryParam("refresh")) {
			if err := data.Store.LoadAll(c.Request().Context()); err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError, "Can't refresh")
			}
		}
		return c.JSON(http.StatusOK, data.Store.List())
	}
}

type createInput struct {
	Name              string `json:"name"`
	ExpectedEthnicity string `json:"expected_ethnicity,omitempty"`
}

func createName(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("create method")()
		var inp createInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		if inp.Name == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No name")
		}
		rec, err := data.Registry.Create(c.Request().Context(), inp.Name, inp.ExpectedEthnicity)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't create record")
		}
		data.Store.UpsertLocal(*rec)
		return c.JSON(http.StatusCreated, rec)
	}
}

func voices(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("voices method")()
		res, err := data.Voices.Voices(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't get voices")
		}
		return c.JSON(http.StatusOK, res)
	}
}

type pronounceInput struct {
	Name    string `json:"name"`
	VoiceID string `json:"voice_id,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

func pronounce(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("pronounce method")()
		var inp pronounceInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		res, err := data.Sessions.Submit(c.Request().Context(), inp.Name, inp.VoiceID)
		if err != nil {
			if errors.Is(err, session.ErrEmptyName) {
				return echo.NewHTTPError(http.StatusBadRequest, "No name")
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't pronounce")
		}
		return c.JSON(http.StatusOK, res)
	}
}

func alternatives(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("alternatives method")()
		var inp pronounceInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		res, err := data.Sessions.Alternatives(c.Request().Context(), inp.Name, inp.Scope)
		if err != nil {
			if errors.Is(err, session.ErrEmptyName) {
				return echo.NewHTTPError(http.StatusBadRequest, "No name")
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't pronounce")
		}
		return c.JSON(http.StatusOK, res)
	}
}

func viewOp(data *Data, f func(*Data, int64) error) func(echo.Context) error {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := f(data, id); err != nil {
			return mapReviewErr(err)
		}
		return c.NoContent(http.StatusOK)
	}
}

func mark(data *Data, correct bool) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("mark method")()
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var res *review.Outcome
		if correct {
			res, err = data.Reviews.MarkCorrect(c.Request().Context(), id)
		} else {
			res, err = data.Reviews.MarkNeedsReview(c.Request().Context(), id)
		}
		if err != nil {
			return mapReviewErr(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func generateOp(data *Data, f func(*Data, context.Context, int64) (*session.Result, error)) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("generate method")()
		id, err := parseID(c)
		if err != nil {
			return err
		}
		res, err := f(data, c.Request().Context(), id)
		if err != nil {
			return mapReviewErr(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func detail(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("detail method")()
		id, err := parseID(c)
		if err != nil {
			return err
		}
		res, err := data.Reviews.Open(id)
		if err != nil {
			return mapReviewErr(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

type bulkInput struct {
	Names    string `json:"names"`
	Generate bool   `json:"generate"`
	Email    string `json:"email,omitempty"`
}

type bulkStartResult struct {
	ID string `json:"id"`
}

func startBulk(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("bulk method")()
		var inp bulkInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Can't decode input")
		}
		names := bulk.ParseNames(inp.Names)
		if len(names) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "No names")
		}
		ctx := c.Request().Context()
		active, err := data.DB.ActiveRuns(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't check runs")
		}
		if active > 0 {
			return echo.NewHTTPError(http.StatusConflict, "Run in progress")
		}
		run := &persistence.Run{ID: uuid.NewString(), Names: names, Generate: inp.Generate,
			Email: inp.Email, Status: status.Queued.String(), Created: time.Now()}
		if err := data.DB.InsertRun(ctx, run); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't save run")
		}
		if err := data.MsgSender.SendMessage(ctx, &messages.BulkMessage{
			QueueMessage: amessages.QueueMessage{ID: run.ID}}, messages.Bulk); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't start run")
		}
		return c.JSON(http.StatusCreated, bulkStartResult{ID: run.ID})
	}
}

type runEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

type runResult struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Total     int        `json:"total"`
	Percent   int        `json:"percent"`
	Entries   []runEntry `json:"entries"`
}

func bulkStatus(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("bulk status method")()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		ctx := c.Request().Context()
		run, err := data.DB.LoadRun(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't load run")
		}
		if run == nil {
			return echo.NewHTTPError(http.StatusNotFound, "No run")
		}
		entries, err := data.DB.LoadEntries(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't load entries")
		}
		return c.JSON(http.StatusOK, mapRun(run, entries))
	}
}

func mapRun(run *persistence.Run, entries []*persistence.RunEntry) *runResult {
	res := &runResult{ID: run.ID, Status: run.Status, Processed: run.Processed,
		Succeeded: run.Succeeded, Failed: run.Failed, Total: len(run.Names), Entries: []runEntry{}}
	if res.Total > 0 {
		res.Percent = res.Processed * 100 / res.Total
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, runEntry{Time: e.Created, Level: e.Level, Message: e.Message})
	}
	return res
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
	}
	return id, nil
}

func mapReviewErr(err error) error {
	if errors.Is(err, review.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "No record")
	}
	if errors.Is(err, review.ErrNotGenerated) {
		return echo.NewHTTPError(http.StatusConflict, "No pronunciation yet")
	}
	if errors.Is(err, review.ErrNotRevealed) {
		return echo.NewHTTPError(http.StatusConflict, "Not revealed")
	}
	goapp.Log.Error().Err(err).Send()
	return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
}

func validate(data *Data) error {
	if data.Store == nil {
		return fmt.Errorf("no store")
	}
	if data.Sessions == nil {
		return fmt.Errorf("no sessions")
	}
	if data.Reviews == nil {
		return fmt.Errorf("no reviews")
	}
	if data.Registry == nil {
		return fmt.Errorf("no registry")
	}
	if data.Voices == nil {
		return fmt.Errorf("no voices provider")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}
