package consul

import (
	"fmt"
	"testing"

	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/test/mocks"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
)

func testMeta() map[string]string {
	return map[string]string{"pronounceURL": "pronounce", "allURL": "pronounce/all",
		"generalURL": "pronounce/general", "voicesURL": "voices"}
}

func Test_Get_empty(t *testing.T) {
	p := newProvider(nil, "olia")
	pr, name, err := p.Get("olia", true)
	assert.Nil(t, pr)
	assert.Equal(t, "", name)
	assert.Nil(t, err)
	pr, name, err = p.Get("olia", false)
	assert.Nil(t, pr)
	assert.Equal(t, "", name)
	assert.NotNil(t, err)
}

func Test_Get_existing(t *testing.T) {
	p := newProvider(nil, "olia")
	pr := &mocks.BackendPronouncer{}
	p.prons = append(p.prons, &prWrap{real: pr, srv: "olia", priority: 1})
	rpr, name, err := p.Get("olia", true)
	testAssertEqPtr(t, pr, rpr)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rpr, name, err = p.Get("olia1", true)
	testAssertEqPtr(t, pr, rpr)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rpr, name, err = p.Get("olia", false)
	testAssertEqPtr(t, pr, rpr)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rpr, name, err = p.Get("olia1", false)
	assert.Nil(t, rpr)
	assert.Equal(t, "", name)
	assert.NotNil(t, err)
}

func Test_Get_by_name(t *testing.T) {
	p := newProvider(nil, "olia")
	pr := &mocks.BackendPronouncer{}
	pr1 := &mocks.BackendPronouncer{}
	p.prons = append(p.prons, &prWrap{real: pr, srv: "olia", priority: 1})
	p.prons = append(p.prons, &prWrap{real: pr1, srv: "olia1", priority: 1})
	rpr, name, _ := p.Get("olia", true)
	testAssertEqPtr(t, pr, rpr)
	assert.Equal(t, "olia", name)

	rpr, name, _ = p.Get("olia1", true)
	testAssertEqPtr(t, pr1, rpr)
	assert.Equal(t, "olia1", name)
}

func Test_Get_selects(t *testing.T) {
	p := newProvider(nil, "olia")
	pr := &mocks.BackendPronouncer{}
	pr1 := &mocks.BackendPronouncer{}
	p.prons = append(p.prons, &prWrap{real: pr, srv: "olia", priority: 1})
	p.prons = append(p.prons, &prWrap{real: pr1, srv: "olia1", priority: 1})
	for i := 0; i < 10; i++ {
		rpr, name, err := p.Get("", true)
		assert.Nil(t, err)
		assert.NotNil(t, rpr)
		assert.Contains(t, []string{"olia", "olia1"}, name)
	}
}

func testAssertEqPtr(t *testing.T, pr, exp papi.Pronouncer) {
	t.Helper()
	assert.Equal(t, fmt.Sprintf("%p", pr), fmt.Sprintf("%p", exp))
}

func TestProvider_updateSrv_no_meta(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv", Meta: map[string]string{}}}})
	assert.NotNil(t, err)
}

func TestProvider_updateSrv_adds(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
}

func TestProvider_updateSrv_addsSame(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
	cp := p.prons[0]
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
	assert.Equal(t, cp, p.prons[0])
}

func TestProvider_updateSrv_updates(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
	cp := p.prons[0]
	meta := testMeta()
	meta["pronounceURL"] = "pronounce/"
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: meta}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
	assert.NotEqual(t, cp, p.prons[0])
}

func TestProvider_updateSrv_addsTwo(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.prons))
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 81, Address: "srv",
		Meta: testMeta()}},
		{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
			Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.prons))
}

func TestProvider_updateSrv_drops(t *testing.T) {
	p := newProvider(nil, "olia")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
		Meta: testMeta()}},
		{Service: &api.AgentService{Service: "olia", Port: 81, Address: "srv",
			Meta: testMeta()}},
		{Service: &api.AgentService{Service: "olia", Port: 82, Address: "srv",
			Meta: testMeta()}}})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(p.prons))
	c1, c2 := p.prons[0], p.prons[2]
	err = p.updateSrv([]*api.ServiceEntry{
		{Service: &api.AgentService{Service: "olia", Port: 82, Address: "srv",
			Meta: testMeta()}},
		{Service: &api.AgentService{Service: "olia", Port: 80, Address: "srv",
			Meta: testMeta()}},
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.prons))
	assert.Equal(t, c1, p.prons[0])
	assert.Equal(t, c2, p.prons[1])
}

func TestGetPriority(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    float64
		wantErr bool
	}{
		{name: "default", args: "", want: 1},
		{name: "value", args: "5", want: 5},
		{name: "too small", args: "0.1", wantErr: true},
		{name: "too big", args: "100", wantErr: true},
		{name: "not a number", args: "olia", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := map[string]string{}
			if tt.args != "" {
				meta["priority"] = tt.args
			}
			got, err := getPriority(&api.ServiceEntry{Service: &api.AgentService{Meta: meta}})
			if tt.wantErr {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
