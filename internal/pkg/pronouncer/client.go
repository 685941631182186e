package pronouncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/cenkalti/backoff/v4"
)

// Client comunicates with the pronunciation backend
type Client struct {
	httpclient   *http.Client
	pronounceURL string
	allURL       string
	generalURL   string
	voicesURL    string
	timeout      time.Duration
	backoff      func() backoff.BackOff
}

// NewClient creates a pronouncer client
func NewClient(pronounceURL, allURL, generalURL, voicesURL string) (*Client, error) {
	res := Client{}
	if pronounceURL == "" {
		return nil, fmt.Errorf("no pronounceURL")
	}
	if allURL == "" {
		return nil, fmt.Errorf("no allURL")
	}
	if generalURL == "" {
		return nil, fmt.Errorf("no generalURL")
	}
	if voicesURL == "" {
		return nil, fmt.Errorf("no voicesURL")
	}
	res.pronounceURL = pronounceURL
	res.allURL = allURL
	res.generalURL = generalURL
	res.voicesURL = voicesURL
	// synthesis is slow - the backend runs three agents per request
	res.timeout = time.Second * 120
	res.httpclient = ttsHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

type nameInput struct {
	Name    string  `json:"name"`
	VoiceID *string `json:"voice_id"`
}

// Pronounce runs one generation cycle. Empty voiceID asks the backend to auto-select
func (sp *Client) Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error) {
	var vPrm *string
	if voiceID != "" {
		vPrm = &voiceID
	}
	return invoke[*papi.Output](ctx, sp, sp.pronounceURL, &nameInput{Name: name, VoiceID: vPrm})
}

// PronounceAll returns one rendering per specialized voice
func (sp *Client) PronounceAll(ctx context.Context, name string) (*papi.MultiOutput, error) {
	return invoke[*papi.MultiOutput](ctx, sp, sp.allURL, &nameInput{Name: name})
}

// PronounceGeneral returns one rendering per general purpose voice
func (sp *Client) PronounceGeneral(ctx context.Context, name string) (*papi.MultiOutput, error) {
	return invoke[*papi.MultiOutput](ctx, sp, sp.generalURL, &nameInput{Name: name})
}

// Voices returns available TTS voices
func (sp *Client) Voices(ctx context.Context) ([]papi.Voice, error) {
	return goapp.InvokeWithBackoff(ctx, func() ([]papi.Voice, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodGet, sp.voicesURL, nil)
		if err != nil {
			return nil, false, err
		}
		req = req.WithContext(ctx)
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		var res []papi.Voice
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		return res, false, nil
	}, sp.backoff())
}

func invoke[T any](ctx context.Context, sp *Client, urlStr string, inp *nameInput) (T, error) {
	return goapp.InvokeWithBackoff(ctx, func() (T, bool, error) {
		var res T
		b, err := json.Marshal(inp)
		if err != nil {
			return res, false, fmt.Errorf("can't marshal input: %w", err)
		}
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodPost, urlStr, bytes.NewReader(b))
		if err != nil {
			return res, false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return res, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return res, goapp.IsRetryableCode(resp.StatusCode), err
		}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return res, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		return res, false, nil
	}, sp.backoff())
}

// BaseURLs builds the four endpoint URLs from one backend base URL
func BaseURLs(base string) (string, string, string, string, error) {
	pr, err := url.JoinPath(base, "pronounce")
	if err != nil {
		return "", "", "", "", fmt.Errorf("can't join URL: %w", err)
	}
	all, err := url.JoinPath(base, "pronounce", "all")
	if err != nil {
		return "", "", "", "", fmt.Errorf("can't join URL: %w", err)
	}
	gen, err := url.JoinPath(base, "pronounce", "general")
	if err != nil {
		return "", "", "", "", fmt.Errorf("can't join URL: %w", err)
	}
	voices, err := url.JoinPath(base, "voices")
	if err != nil {
		return "", "", "", "", fmt.Errorf("can't join URL: %w", err)
	}
	return pr, all, gen, voices, nil
}

func ttsHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
