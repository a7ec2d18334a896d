package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(nil)
	registry.Register(jobB)
	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	// caller cannot mutate internal slice
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
	assert.Equal(t, []string{"a", "b"}, registry.Names())
}

func TestRegistrySelectKeepsOrder(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "close"}, &stubJob{name: "sync"}, &stubJob{name: "migrate"})

	selected, err := registry.Select("migrate", "close")
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "migrate"}, selected.Names())

	all, err := registry.Select()
	require.NoError(t, err)
	assert.Same(t, registry, all)
}

func TestRegistrySelectRejectsUnknown(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "sync"})

	_, err := registry.Select("sync", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}
