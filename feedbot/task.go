package feedbot

import (
	"context"
	"fmt"
	"time"

	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/sourcegraph/conc/panics"
)

// ErrGeneration is returned by a task whose text generation produced nothing usable
type ErrGeneration struct {
	Task string
	Err  error
}

func (e ErrGeneration) Error() string {
	return fmt.Sprintf("generation for %s failed: %s", e.Task, e.Err)
}

func (e ErrGeneration) Unwrap() error {
	return e.Err
}

func run(ctx context.Context, name string, delay time.Duration, task func(context.Context) error) {
	if !sleep(ctx, delay) {
		logger.For(ctx).Debug("task cancelled before it ran")
		return
	}

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = task(ctx) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	if err == nil {
		return
	}
	if ctx.Err() != nil {
		logger.For(ctx).Debugf("task cancelled: %s", err)
		return
	}

	logger.For(ctx).Errorf("task failed: %s", err)
	sentryutil.ReportTaskError(ctx, name, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Scheduler) welcome(ctx context.Context, viewer persist.Viewer, persona persist.Persona) error {
	result := ai.SuggestPost(ctx, s.gen, ai.WelcomeTopic(persona.Handle, viewer.Handle))
	if !result.OK() {
		return ErrGeneration{Task: "welcome post", Err: resultErr(result)}
	}
	return s.feed.AddPost(ctx, result.Text, true)
}

func (s *Scheduler) followUp(ctx context.Context, target persist.Post) error {
	result := ai.SuggestComment(ctx, s.gen, target.Content, target.Author.Handle)
	if !result.OK() {
		return ErrGeneration{Task: fmt.Sprintf("comment on post %s", target.ID), Err: resultErr(result)}
	}
	return s.feed.AddBotComment(ctx, target.ID, result.Text)
}

func resultErr(r ai.Result) error {
	if r.Err != nil {
		return r.Err
	}
	return ai.ErrEmptyResponse
}
