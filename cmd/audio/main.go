package main

import (
	"context"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"

	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/audioservice"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &audioservice.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	data.Reader, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file reader")
	}

	err = audioservice.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
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

                     ___
  ____ ___  ______  / (_)___
 / __ ` + "`" + `/ / / / __ \/ / / __ \
/ /_/ / /_/ / /_/ / / / /_/ /
\__,_/\__,_/\__,_/_/_/\____/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/tassel-gaurav/phonetic-justice"))
}
