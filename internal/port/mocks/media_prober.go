package mocks

import (
	"context"

	"github.com/bnema/clipforge/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MediaProberMock is a mock of port.MediaProber.
type MediaProberMock struct {
	mock.Mock
}

type MediaProberMock_Expecter struct {
	mock *mock.Mock
}

func (_m *MediaProberMock) EXPECT() *MediaProberMock_Expecter {
	return &MediaProberMock_Expecter{mock: &_m.Mock}
}

func (_m *MediaProberMock) Probe(ctx context.Context, path string) (*domain.ProbeResult, error) {
	ret := _m.Called(ctx, path)

	if len(ret) == 0 {
		panic("no return value specified for Probe")
	}

	var r0 *domain.ProbeResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.ProbeResult)
	}
	return r0, ret.Error(1)
}

type MediaProberMock_Probe_Call struct {
	*mock.Call
}

func (_e *MediaProberMock_Expecter) Probe(ctx interface{}, path interface{}) *MediaProberMock_Probe_Call {
	return &MediaProberMock_Probe_Call{Call: _e.mock.On("Probe", ctx, path)}
}

func (_c *MediaProberMock_Probe_Call) Return(_a0 *domain.ProbeResult, _a1 error) *MediaProberMock_Probe_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// NewMediaProberMock registers a cleanup that asserts the mock's expectations.
func NewMediaProberMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *MediaProberMock {
	m := &MediaProberMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// DurationResult builds a probe result reporting seconds as the container
// duration.
func DurationResult(seconds string) *domain.ProbeResult {
	return &domain.ProbeResult{Format: domain.ProbeFormat{Duration: seconds}}
}
