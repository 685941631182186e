package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
	"github.com/cenkalti/backoff/v4"
)

// Client comunicates with the backend's name record endpoints
type Client struct {
	httpclient *http.Client
	namesURL   string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates a name registry client
func NewClient(namesURL string) (*Client, error) {
	res := Client{}
	if namesURL == "" {
		return nil, fmt.Errorf("no namesURL")
	}
	res.namesURL = namesURL
	res.timeout = time.Second * 50
	res.httpclient = &http.Client{}
	res.backoff = newSimpleBackoff
	return &res, nil
}

// List loads all name records
func (sp *Client) List(ctx context.Context) ([]api.NameRecord, error) {
	return goapp.InvokeWithBackoff(ctx, func() ([]api.NameRecord, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodGet, sp.namesURL, nil)
		if err != nil {
			return nil, false, err
		}
		req = req.WithContext(ctx)
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer closeBody(resp)
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		var res []api.NameRecord
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		return res, false, nil
	}, sp.backoff())
}

type createInput struct {
	Name              string  `json:"name"`
	ExpectedEthnicity *string `json:"expected_ethnicity"`
}

// Create adds a new name record, the backend assigns the ID
func (sp *Client) Create(ctx context.Context, name, expectedEthnicity string) (*api.NameRecord, error) {
	inp := createInput{Name: name}
	if expectedEthnicity != "" {
		inp.ExpectedEthnicity = &expectedEthnicity
	}
	res := &api.NameRecord{}
	if err := sp.put(ctx, http.MethodPost, sp.namesURL, &inp, res); err != nil {
		return nil, err
	}
	if res.ID == 0 {
		return nil, fmt.Errorf("can't get ID from response")
	}
	return res, nil
}

// GenerationUpdate keeps generation fields written back after a successful generation
type GenerationUpdate struct {
	DetectedEthnicity string `json:"detected_ethnicity"`
	NativeScript      string `json:"native_script"`
	AudioPath         string `json:"audio_path"`
	LastTested        string `json:"last_tested"`
}

// UpdateGeneration persists generation results onto a record
func (sp *Client) UpdateGeneration(ctx context.Context, id int64, upd *GenerationUpdate) error {
	return sp.put(ctx, http.MethodPut, fmt.Sprintf("%s/%d/update", sp.namesURL, id), upd, nil)
}

type statusInput struct {
	Status string `json:"status"`
}

// UpdateStatus persists a record's review status
func (sp *Client) UpdateStatus(ctx context.Context, id int64, status string) error {
	return sp.put(ctx, http.MethodPut, fmt.Sprintf("%s/%d/status", sp.namesURL, id), &statusInput{Status: status}, nil)
}

func (sp *Client) put(ctx context.Context, method, urlStr string, inp, out interface{}) error {
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		b, err := json.Marshal(inp)
		if err != nil {
			return nil, false, fmt.Errorf("can't marshal input: %w", err)
		}
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequest(method, urlStr, bytes.NewReader(b))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer closeBody(resp)
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
			}
		}
		return nil, false, nil
	}, sp.backoff())
	return err
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
	_ = resp.Body.Close()
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
