package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/utils"
)

// Filer saves files to long term storage
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader, size int64) error
}

// AudioArchiver copies generated audio from the pronunciation backend
// into the archive bucket
type AudioArchiver struct {
	httpclient *http.Client
	baseURL    string
	filer      Filer
	timeout    time.Duration
}

// NewAudioArchiver creates an archiver instance
func NewAudioArchiver(baseURL string, filer Filer) (*AudioArchiver, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("no baseURL")
	}
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	return &AudioArchiver{baseURL: baseURL, filer: filer, httpclient: &http.Client{},
		timeout: time.Second * 60}, nil
}

// Archive fetches the audio file and stores it under "<id>/<file>"
func (a *AudioArchiver) Archive(ctx context.Context, id int64, audioPath string) error {
	urlStr, err := url.JoinPath(a.baseURL, audioPath)
	if err != nil {
		return fmt.Errorf("can't join URL: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, a.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("url", req.URL.String()).Msg("fetch audio")
	resp, err := a.httpclient.Do(req)
	if err != nil {
		return fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	name, err := utils.MakeValidateFileName(fmt.Sprintf("%d", id), audioPath)
	if err != nil {
		return fmt.Errorf("can't make file name: %w", err)
	}
	if err := a.filer.SaveFile(ctx, name, resp.Body, resp.ContentLength); err != nil {
		return fmt.Errorf("can't save file: %w", err)
	}
	return nil
}
