package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/apiservice"
)

type EchoAPIService struct{}

func (s *EchoAPIService) Say(word string) string { return word }

func newDispatcher() *apiservice.Dispatcher {
	echo := apiservice.Type("EchoAPIService", func() any { return &EchoAPIService{} }).
		Operation(apiservice.Op("Say", (*EchoAPIService).Say, "word").Route("say/{word}"))
	return apiservice.NewDispatcher(apiservice.NewCatalog(echo))
}

func TestCollector_Dispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newDispatcher()
	c := New(reg, d.Registry())
	c.Instrument(d)

	desc := func() *apiservice.ServiceDescriptor {
		return &apiservice.ServiceDescriptor{Name: "echo", Version: "v1", Route: "api/v1/echo/", Verb: "GET"}
	}

	res, err := d.Dispatch(context.Background(), apiservice.NewRequest("GET", "/api/v1/echo/say/hi", nil), desc())
	require.NoError(t, err)
	assert.Equal(t, "hi", res)

	_, err = d.Dispatch(context.Background(), apiservice.NewRequest("GET", "/api/v1/echo/shout/hi", nil), desc())
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.dispatches.WithLabelValues("echo", "v1", "Say", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.dispatches.WithLabelValues("echo", "v1", "", "service_action_not_found")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.cached))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.scans))

	n, err := promtest.GatherAndCount(reg, "apiservice_dispatch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollector_OnFailure(t *testing.T) {
	tests := []struct {
		name string
		desc *apiservice.ServiceDescriptor
		err  error
		want []string
	}{
		{
			name: "domain error",
			desc: &apiservice.ServiceDescriptor{Name: "echo", Version: "v1"},
			err:  apiservice.NewError(apiservice.CodeServiceUnauthorized, "denied"),
			want: []string{"echo", "v1", "Say", "service_unauthorized"},
		},
		{
			name: "plain error",
			desc: &apiservice.ServiceDescriptor{Name: "echo", Version: "v1"},
			err:  errors.New("boom"),
			want: []string{"echo", "v1", "Say", "unknown"},
		},
		{
			name: "nil descriptor",
			desc: nil,
			err:  apiservice.NewError(apiservice.CodeNotSet, "not set"),
			want: []string{"", "", "Say", "not_set"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(prometheus.NewRegistry(), nil)
			c.OnFailure(context.Background(), tt.desc, "Say", tt.err, time.Millisecond)
			assert.Equal(t, 1.0, promtest.ToFloat64(c.dispatches.WithLabelValues(tt.want...)))
		})
	}
}

func TestNew_WithoutRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)
	assert.Nil(t, c.cached)
	assert.Nil(t, c.scans)

	c.OnSuccess(context.Background(), &apiservice.ServiceDescriptor{Name: "echo", Version: "v1"}, "Say", time.Millisecond)
	n, err := promtest.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
