package inform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// fakeEmailSender posts the email as JSON to a HTTP url instead of real SMTP delivery
type fakeEmailSender struct {
	url string
}

// NewFakeEmailSender initiates fake email sender
func NewFakeEmailSender(c *viper.Viper) (*fakeEmailSender, error) {
	r := fakeEmailSender{}
	r.url = c.GetString("smtp.fakeUrl")
	if r.url == "" {
		return nil, fmt.Errorf("no URL")
	}
	goapp.Log.Info().Str("URL", r.url).Msg("Fake email sender")
	return &r, nil
}

// Send posts email to the configured url
func (s *fakeEmailSender) Send(email *email.Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}
	ctx, cancelF := context.WithTimeout(context.TODO(), time.Second*5)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	return nil
}
