package toolscript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the tool script when
// the test binary is re-executed by helperLauncher.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	payload := os.Args[len(os.Args)-1]

	switch os.Getenv("HELPER_MODE") {
	case "progress":
		fmt.Println(`{"type":"progress-message","content":"Reading ` + strings.ReplaceAll(payload, `"`, `'`) + `"}`)
		fmt.Println(`{"type":"progress","content":50}`)
		fmt.Println(`{"type":"progress","content":100}`)
		os.Exit(0)
	case "fail":
		fmt.Println(`{"type":"progress","content":10}`)
		os.Exit(3)
	case "flood":
		fmt.Println(`{"type":"progress-message","content":"` + strings.Repeat("z", 2*maxLineSize) + `"}`)
		for i := 0; i < 20000; i++ {
			fmt.Println(`{"type":"progress","content":50}`)
		}
		fmt.Println(`{"type":"progress","content":100}`)
		os.Exit(0)
	case "hang":
		fmt.Println(`{"type":"progress","content":1}`)
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(0)
}

func helperLauncher(mode string) *ExecLauncher {
	return &ExecLauncher{
		Command:   []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Env:       append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode),
		WaitDelay: time.Second,
	}
}

func run(t *testing.T, ctx context.Context, l Launcher, payload string) ([]string, Result) {
	t.Helper()
	proc, err := l.Start(ctx, []byte(payload))
	require.NoError(t, err)

	var events []string
	require.NoError(t, Consume(proc.Stdout(), Handler{
		OnMessage:  func(text string) { events = append(events, text) },
		OnProgress: func(p int) { events = append(events, fmt.Sprint(p)) },
	}))
	return events, Classify(ctx, proc.Wait())
}

func TestExecLauncherSuccess(t *testing.T) {
	events, res := run(t, context.Background(), helperLauncher("progress"), `{"id":"r1"}`)

	assert.Equal(t, []string{`Reading {'id':'r1'}`, "50", "100"}, events)
	assert.Equal(t, StatusSucceeded, res.Status)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
}

func TestExecLauncherOversizedLineStillSucceeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events, res := run(t, ctx, helperLauncher("flood"), `{}`)

	require.Len(t, events, 20001)
	assert.Equal(t, "100", events[len(events)-1])
	assert.Equal(t, StatusSucceeded, res.Status)
}

func TestExecLauncherNonZeroExit(t *testing.T) {
	events, res := run(t, context.Background(), helperLauncher("fail"), `{}`)

	assert.Equal(t, []string{"10"}, events)
	assert.Equal(t, StatusFailed, res.Status)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
}

func TestExecLauncherTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, res := run(t, ctx, helperLauncher("hang"), `{}`)
	assert.Equal(t, StatusTimedOut, res.Status)
}

func TestExecLauncherCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, res := run(t, ctx, helperLauncher("hang"), `{}`)
	assert.Equal(t, StatusCanceled, res.Status)
}

func TestExecLauncherStartErrors(t *testing.T) {
	_, err := (&ExecLauncher{}).Start(context.Background(), nil)
	assert.Error(t, err)

	_, err = (&ExecLauncher{Command: []string{"/definitely/not/a/tool"}}).Start(context.Background(), nil)
	assert.Error(t, err)
}

func TestClassifyPlainError(t *testing.T) {
	res := Classify(context.Background(), errors.New("pipe closed"))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Nil(t, res.ExitCode)
}
