package mocks

import (
	"context"

	"github.com/bnema/clipforge/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// JobArchiveMock is a mock of port.JobArchive.
type JobArchiveMock struct {
	mock.Mock
}

type JobArchiveMock_Expecter struct {
	mock *mock.Mock
}

func (_m *JobArchiveMock) EXPECT() *JobArchiveMock_Expecter {
	return &JobArchiveMock_Expecter{mock: &_m.Mock}
}

func (_m *JobArchiveMock) Record(ctx context.Context, job *domain.Job) error {
	ret := _m.Called(ctx, job)

	if len(ret) == 0 {
		panic("no return value specified for Record")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *domain.Job) error); ok {
		r0 = rf(ctx, job)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

type JobArchiveMock_Record_Call struct {
	*mock.Call
}

func (_e *JobArchiveMock_Expecter) Record(ctx interface{}, job interface{}) *JobArchiveMock_Record_Call {
	return &JobArchiveMock_Record_Call{Call: _e.mock.On("Record", ctx, job)}
}

func (_c *JobArchiveMock_Record_Call) Run(run func(ctx context.Context, job *domain.Job)) *JobArchiveMock_Record_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(*domain.Job))
	})
	return _c
}

func (_c *JobArchiveMock_Record_Call) Return(_a0 error) *JobArchiveMock_Record_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_m *JobArchiveMock) Recent(ctx context.Context, limit int) ([]*domain.Job, error) {
	ret := _m.Called(ctx, limit)

	if len(ret) == 0 {
		panic("no return value specified for Recent")
	}

	var r0 []*domain.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*domain.Job)
	}
	return r0, ret.Error(1)
}

type JobArchiveMock_Recent_Call struct {
	*mock.Call
}

func (_e *JobArchiveMock_Expecter) Recent(ctx interface{}, limit interface{}) *JobArchiveMock_Recent_Call {
	return &JobArchiveMock_Recent_Call{Call: _e.mock.On("Recent", ctx, limit)}
}

func (_c *JobArchiveMock_Recent_Call) Return(_a0 []*domain.Job, _a1 error) *JobArchiveMock_Recent_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// NewJobArchiveMock registers a cleanup that asserts the mock's expectations.
func NewJobArchiveMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *JobArchiveMock {
	m := &JobArchiveMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
