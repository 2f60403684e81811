package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunnerAggregatesErrors(t *testing.T) {
	errBoom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx).Go(
		NamedRun("ok", RunFunc(func(context.Context) error { return nil })),
		NamedRun("failing", RunFunc(func(context.Context) error { return errBoom })),
		NamedRun("waiting", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
	)
	cancel()
	err := runner.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errBoom))
	require.Equal(t, "failing: boom", err.Error())
}

func TestRunnerCanceledIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx).Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	require.NoError(t, runner.Wait())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblockCh := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(unblockCh)
		return nil
	})
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblockCh
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())
	errs.Add(errors.New("a"), errors.New("b"))
	require.Equal(t, "Multiple errors:\na\nb", errs.Aggregate().Error())
}
