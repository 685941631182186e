package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/adminservice"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/consul"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/postgres"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/registry"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/review"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/session"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/store"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &adminservice.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	reg, err := registry.NewClient(cfg.GetString("registry.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init registry client")
	}
	data.Registry = reg

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	pron, err := newPronouncer(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pronunciation backend")
	}
	data.Voices = pron

	records, err := store.NewRecords(reg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init record store")
	}
	if err := records.LoadAll(ctx); err != nil {
		goapp.Log.Warn().Err(err).Msg("can't load records on startup")
	}
	data.Store = records

	sessions, err := session.NewController(pron, reg, records)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init session controller")
	}
	data.Sessions = sessions

	reviews, err := review.NewMachine(sessions, reg, records)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init review machine")
	}
	data.Reviews = reviews

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	wsh := adminservice.NewWSConnKeeper()
	data.WSHandler = wsh

	hData := &adminservice.HandlerData{}
	hData.Store = records
	hData.WSHandler = wsh
	hData.WorkerCount = defaultV(cfg.GetInt("worker.count"), 5)
	hData.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}

	goapp.Log.Info().Msg("starting progress handler")
	doneCh, err := adminservice.StartProgressHandler(ctx, hData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start progress handler")
	}

	go utils.RunPerfEndpoint()

	goapp.Log.Info().Msg("starting web service")
	if err := adminservice.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	goapp.Log.Info().Msg("exit web service")
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

// newPronouncer prepares the backend client. With consul configured
// backends are discovered and refreshed from the service registry,
// otherwise a static client from config URLs is used
func newPronouncer(ctx context.Context) (papi.Pronouncer, error) {
	cfg := goapp.Config
	if cfg.GetString("consul.address") != "" {
		consulCfg := api.DefaultConfig()
		consulCfg.Address = cfg.GetString("consul.address")
		provider, err := consul.NewProvider(consulCfg, cfg.GetString("consul.service"))
		if err != nil {
			return nil, err
		}
		if _, err := provider.StartRegistryLoop(ctx, defaultV(cfg.GetDuration("consul.checkInterval"), time.Second*10)); err != nil {
			return nil, err
		}
		return consul.NewRouted(provider)
	}
	return pronouncer.NewClient(cfg.GetString("backend.pronounceUrl"), cfg.GetString("backend.allUrl"),
		cfg.GetString("backend.generalUrl"), cfg.GetString("backend.voicesUrl"))
}

func defaultV[T comparable](v, dv T) T {
	var empty T
	if v == empty {
		return dv
	}
	return v
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Info().Msg
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		logFunc("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		logFunc("after release")
		return true
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
     ____  __ ______  _   __ __
    / __ \/ // / __ \/ | / / /
   / /_/ / _ / /_/ /  |/ /_/
  / ____/ // \____/ /|  /\ \
 /_/   /_//_/      /_/ |_/ /_/

              __          _
  ____ _____/ /___ ___  (_)___
 / __ ` + "`" + `/ __  / __ ` + "`" + `__ \/ / __ \
/ /_/ / /_/ / / / / / / / / / /
\__,_/\__,_/_/ /_/ /_/_/_/ /_/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/tassel-gaurav/phonetic-justice"))
}
