package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

func TestTaskRunsAndReportsProgress(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{start: func(_ context.Context, kind TaskKind, args TaskArgs, l TaskListener) (TaskResult, error) {
		l.OnProgress(40, "Downloading")
		l.OnProgress(150, "overflow")
		<-release

		return TaskResult{"model": args["model"]}, nil
	}}
	pub := &recorder{}
	task := NewTask(TaskDownloadModel, gw, pub, 0, nil)

	if err := task.Start(context.Background(), TaskArgs{"model": "small"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool { return task.Status().Percent == 100 && task.Running() })

	if err := task.Start(context.Background(), nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if n := gw.startCalls(); n != 1 {
		t.Fatalf("expected one gateway start while running, got %d", n)
	}
	close(release)

	st, err := task.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if st.State != TaskSucceeded || st.Result["model"] != "small" {
		t.Fatalf("unexpected status %+v", st)
	}

	progress := pub.byTopic(signals.TopicTaskProgress)
	if len(progress) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(progress))
	}
	if p := progress[1].(signals.TaskProgress); p.Percent != 40 || p.Status != "Downloading" {
		t.Fatalf("unexpected progress %+v", p)
	}
	states := pub.byTopic(signals.TopicTaskState)
	if last := states[len(states)-1].(signals.TaskState); last.State != "succeeded" {
		t.Fatalf("unexpected final state %+v", last)
	}
	if len(pub.byTopic(signals.TopicNotice)) != 1 {
		t.Fatalf("expected already-running notice")
	}
}

func TestTaskRunsCompletionHooks(t *testing.T) {
	gw := &fakeGateway{start: func(_ context.Context, _ TaskKind, args TaskArgs, _ TaskListener) (TaskResult, error) {
		if args["fail"] == true {
			return nil, errors.New("offline")
		}

		return TaskResult{"latest": "1.2.0"}, nil
	}}
	task := NewTask(TaskCheckUpdates, gw, &recorder{}, 0, nil)
	outcomes := make(chan TaskOutcome, 4)
	task.OnComplete(func(o TaskOutcome) { outcomes <- o })
	task.OnComplete(func(TaskOutcome) { outcomes <- TaskOutcome{Kind: "second"} })

	if err := task.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := task.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	first := <-outcomes
	if first.Kind != TaskCheckUpdates || first.Err != nil || first.Result["latest"] != "1.2.0" {
		t.Fatalf("unexpected outcome %+v", first)
	}
	if second := <-outcomes; second.Kind != "second" {
		t.Fatalf("expected hooks in registration order, got %+v", second)
	}

	if err := task.Start(context.Background(), TaskArgs{"fail": true}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	_, _ = task.Wait(context.Background())
	if failed := <-outcomes; failed.Err == nil || failed.Args["fail"] != true {
		t.Fatalf("expected failed outcome with args, got %+v", failed)
	}
	<-outcomes
}

func TestTaskFailure(t *testing.T) {
	gw := &fakeGateway{start: func(context.Context, TaskKind, TaskArgs, TaskListener) (TaskResult, error) {
		return nil, errors.New("connection refused")
	}}
	pub := &recorder{}
	task := NewTask(TaskOllamaTest, gw, pub, 0, nil)

	_ = task.Start(context.Background(), nil)
	st, _ := task.Wait(context.Background())
	if st.State != TaskFailed || st.Err == nil {
		t.Fatalf("unexpected status %+v", st)
	}
	errs := pub.byTopic(signals.TopicError)
	if len(errs) != 1 || errs[0].(signals.Error).Kind != signals.ErrorTask {
		t.Fatalf("expected task error signal, got %+v", errs)
	}

	if err := task.Start(context.Background(), nil); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	_, _ = task.Wait(context.Background())
}

func TestTaskKindsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{start: func(_ context.Context, kind TaskKind, _ TaskArgs, l TaskListener) (TaskResult, error) {
		if kind == TaskDownloadModel {
			<-release
		}
		l.OnProgress(100, string(kind))

		return TaskResult{}, nil
	}}
	download := NewTask(TaskDownloadModel, gw, nil, 0, nil)
	install := NewTask(TaskGPUInstall, gw, nil, 0, nil)

	_ = download.Start(context.Background(), nil)
	if err := install.Start(context.Background(), nil); err != nil {
		t.Fatalf("second kind blocked by first: %v", err)
	}
	st, _ := install.Wait(context.Background())
	if st.State != TaskSucceeded || st.Status != string(TaskGPUInstall) {
		t.Fatalf("unexpected install status %+v", st)
	}
	close(release)
	_, _ = download.Wait(context.Background())
}

func TestMicTestToggle(t *testing.T) {
	gw := &fakeGateway{}
	gw.start = func(ctx context.Context, kind TaskKind, _ TaskArgs, l TaskListener) (TaskResult, error) {
		l.OnAudioLevel(-40)
		<-ctx.Done()

		return nil, ctx.Err()
	}
	pub := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mic := NewMicTest(gw, pub, time.Second, nil)

	if err := mic.Toggle(ctx); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(pub.byTopic(signals.TopicAudioLevel)) == 1 })
	level := pub.byTopic(signals.TopicAudioLevel)[0].(signals.AudioLevel)
	if level.Percent != 50 {
		t.Fatalf("level percent = %v, want 50", level.Percent)
	}
	if !mic.Testing() {
		t.Fatalf("expected testing state")
	}

	if err := mic.Toggle(ctx); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if mic.Testing() {
		t.Fatalf("still testing after stop")
	}
	if len(gw.stops) != 1 || gw.stops[0] != TaskMicTest {
		t.Fatalf("unexpected stop calls %v", gw.stops)
	}
	cancel()
	_ = mic.Wait(context.Background())
}

func TestMicTestStopFailureStillResets(t *testing.T) {
	gw := &fakeGateway{stopErr: errors.New("no such task")}
	block := make(chan struct{})
	gw.start = func(context.Context, TaskKind, TaskArgs, TaskListener) (TaskResult, error) {
		<-block

		return nil, nil
	}
	mic := NewMicTest(gw, nil, time.Second, nil)

	_ = mic.Start(context.Background())
	if err := mic.Stop(context.Background()); err == nil {
		t.Fatalf("expected stop error")
	}
	if mic.Testing() {
		t.Fatalf("toggle not reset after failed stop")
	}
	close(block)
	_ = mic.Wait(context.Background())
}

func TestMicTestStartFailure(t *testing.T) {
	gw := &fakeGateway{start: func(context.Context, TaskKind, TaskArgs, TaskListener) (TaskResult, error) {
		return nil, errors.New("no input device")
	}}
	pub := &recorder{}
	mic := NewMicTest(gw, pub, time.Second, nil)

	_ = mic.Start(context.Background())
	_ = mic.Wait(context.Background())
	if mic.Testing() {
		t.Fatalf("testing after failed start")
	}
	if len(pub.byTopic(signals.TopicError)) != 1 {
		t.Fatalf("expected error signal")
	}
}
