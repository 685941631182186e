package consul

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer"
	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/hashicorp/consul/api"
	"go.uber.org/multierr"
)

const (
	pronounceKey = "pronounceURL"
	allKey       = "allURL"
	generalKey   = "generalURL"
	voicesKey    = "voicesURL"
	isHTTPSSLKey = "HTTPSSL"
	priorityKey  = "priority"
)

// Provider keeps pronunciation backends registered in consul
type Provider struct {
	consul  *api.Client
	srvName string

	lock  *sync.RWMutex
	prons []*prWrap
}

type prWrap struct {
	real     papi.Pronouncer
	srv      string
	key      string
	priority float64
}

// NewProvider creates consul backed backend provider
func NewProvider(cfg *api.Config, srvNameInConsul string) (*Provider, error) {
	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if srvNameInConsul == "" {
		return nil, fmt.Errorf("no srv name")
	}
	return newProvider(c, srvNameInConsul), nil
}

func newProvider(c *api.Client, srvNameInConsul string) *Provider {
	goapp.Log.Info().Str("service", srvNameInConsul).Msg("cfg: srv name in consul")
	return &Provider{consul: c, srvName: srvNameInConsul, lock: &sync.RWMutex{}, prons: make([]*prWrap, 0)}
}

// Get returns a backend. If srv matches an active backend it is reused,
// with allowNew a new one may be picked randomly weighted by priority
func (c *Provider) Get(srv string, allowNew bool) (papi.Pronouncer, string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	for _, t := range c.prons {
		if t.srv == srv {
			return t.real, t.srv, nil
		}
	}
	if !allowNew {
		return nil, "", fmt.Errorf("no active srv `%s`", srv)
	}
	if len(c.prons) == 0 {
		return nil, "", nil
	}
	if len(c.prons) == 1 {
		t := c.prons[0]
		return t.real, t.srv, nil
	}
	i, err := getRandomByPriority(c.prons)
	if err != nil {
		return nil, "", fmt.Errorf("can't select backend: %v", err)
	}
	if i < len(c.prons) {
		t := c.prons[i]
		return t.real, t.srv, nil
	}
	return nil, "", nil
}

func getRandomByPriority(wraps []*prWrap) (int, error) {
	prMax := 0.0
	for _, w := range wraps {
		prMax += w.priority
	}
	if prMax < 0.1 {
		return 0, fmt.Errorf("wrong priority sum found %f", prMax)
	}
	rnd := rand.Float64() * prMax
	prMax = 0.0
	for i, w := range wraps {
		prMax += w.priority
		if prMax > rnd {
			return i, nil
		}
	}
	return len(wraps), nil
}

// StartRegistryLoop starts the consul polling loop
func (c *Provider) StartRegistryLoop(ctx context.Context, checkInterval time.Duration) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting consul service check every %v", checkInterval)
	res := make(chan struct{}, 2)
	go func() {
		defer close(res)
		c.serviceLoop(ctx, checkInterval)
	}()
	return res, nil
}

func (c *Provider) serviceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	// run on startup
	if err := c.check(ctx); err != nil {
		goapp.Log.Error().Err(err).Send()
	}
	for {
		select {
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case <-ctx.Done():
			ticker.Stop()
			goapp.Log.Info().Msgf("Stopped consul timer service")
			return
		}
	}
}

func (c *Provider) check(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	srvs, _, err := c.consul.Health().Service(c.srvName, "", true, (&api.QueryOptions{}).WithContext(ctxInt))
	if err != nil {
		return fmt.Errorf("can't invoke consul: %v", err)
	}
	return c.updateSrv(srvs)
}

func (c *Provider) updateSrv(srvs []*api.ServiceEntry) error {
	goapp.Log.Info().Msgf("got %d services from consul", len(srvs))
	c.lock.Lock()
	defer c.lock.Unlock()
	ms := map[string]*api.ServiceEntry{}
	for _, s := range srvs {
		ms[key(s)] = s
	}
	kept := []*prWrap{}
	for _, s := range c.prons {
		if v, ok := ms[s.srv]; ok && s.key == fullKey(v) {
			kept = append(kept, s)
			delete(ms, s.srv)
			continue
		}
		goapp.Log.Warn().Str("service", s.srv).Msgf("dropped backend")
	}
	if len(kept) == len(c.prons) && len(ms) == 0 {
		return nil
	}
	c.prons = kept
	var err error
	for v, k := range ms {
		pr, errInt := newPronouncer(v, k)
		if errInt != nil {
			err = multierr.Append(err, errInt)
			continue
		}
		c.prons = append(c.prons, pr)
		goapp.Log.Info().Str("service", v).Float64("priority", pr.priority).Msg("added backend")
	}
	return err
}

func newPronouncer(v string, s *api.ServiceEntry) (*prWrap, error) {
	pr, err := pronouncer.NewClient(getUrl(s, pronounceKey), getUrl(s, allKey), getUrl(s, generalKey), getUrl(s, voicesKey))
	if err != nil {
		return nil, fmt.Errorf("can't init backend for %s: %v", v, err)
	}
	priority, err := getPriority(s)
	if err != nil {
		return nil, fmt.Errorf("can't init backend for %s: %v", v, err)
	}
	res := &prWrap{real: pr, srv: v, key: fullKey(s), priority: priority}
	return res, nil
}

func getPriority(s *api.ServiceEntry) (float64, error) {
	v, ok := s.Service.Meta[priorityKey]
	if !ok {
		return 1, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse priority '%s': %v", v, err)
	}
	if res < 0.5 || res > 50 {
		return 0, fmt.Errorf("wrong priority value '%f', not in [0.5, 50]", res)
	}
	return res, nil
}

func getUrl(s *api.ServiceEntry, key string) string {
	v, ok := s.Service.Meta[key]
	if !ok {
		return ""
	}
	ssl := ""
	if isSSL, ok := s.Service.Meta[isHTTPSSLKey]; ok {
		if boolValue, err := strconv.ParseBool(isSSL); err == nil && boolValue {
			ssl = "s"
		}
	}
	return fmt.Sprintf("http%s://%s:%d/%s", ssl, s.Service.Address, s.Service.Port, v)
}

func key(s *api.ServiceEntry) string {
	return fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port)
}

func fullKey(s *api.ServiceEntry) string {
	res := strings.Builder{}
	for _, key := range [...]string{pronounceKey, allKey, generalKey, voicesKey, isHTTPSSLKey, priorityKey} {
		v, ok := s.Service.Meta[key]
		if ok {
			res.WriteString(key + ":" + v + ",")
		}
	}
	return res.String()
}
