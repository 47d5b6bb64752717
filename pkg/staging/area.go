// Package staging holds the run currently being assembled by the client and
// the live progress of the tool run launched from it.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"time"
)

// Mode tells whether the staged run is being configured for a launch or is
// a finished run whose report is being displayed.
type Mode string

const (
	ModeConfiguring Mode = "configuring"
	ModeViewing     Mode = "viewing"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCanceled  Status = "canceled"
)

const StartingMessage = "Starting subcorpora run..."

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrNoActiveRun   = errors.New("no run is in progress")
)

// Run is the staged run. Selections are stored as given; ids are resolved
// against the session document only at launch.
type Run struct {
	Mode         Mode            `json:"mode"`
	Id           string          `json:"id"`
	Name         string          `json:"name"`
	Time         string          `json:"time"`
	Collections  []string        `json:"collections"`
	KeywordList  []string        `json:"keywordList"`
	Interviews   json.RawMessage `json:"interviews"`
	Interviewees json.RawMessage `json:"interviewees"`
	AfterRun     bool            `json:"afterRun"`
}

// Progress is what a poll sees.
type Progress struct {
	AttemptId  string     `json:"attemptId,omitempty"`
	RunId      string     `json:"runId,omitempty"`
	Total      int        `json:"total"`
	Message    string     `json:"message"`
	Status     Status     `json:"status"`
	ExitCode   *int       `json:"exitCode,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Seq        uint64     `json:"seq"`
}

func (p Progress) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCanceled:
		return true
	}
	return false
}

var (
	nameStrip = regexp.MustCompile(`\s`)
	timeStrip = regexp.MustCompile(`[\s/:]`)
)

// DeriveRunID strips whitespace from name and whitespace, '/' and ':' from
// timestamp, then joins them with a hyphen.
func DeriveRunID(name, timestamp string) string {
	return nameStrip.ReplaceAllString(name, "") + "-" + timeStrip.ReplaceAllString(timestamp, "")
}

func emptyRun() Run {
	return Run{
		Mode:         ModeConfiguring,
		Collections:  []string{},
		KeywordList:  []string{},
		Interviews:   json.RawMessage(`""`),
		Interviewees: json.RawMessage(`""`),
	}
}

// Area is the single staging record of the process. The zero value is not
// usable; call NewArea.
type Area struct {
	mu       sync.Mutex
	run      Run
	progress Progress
	cancel   context.CancelFunc
	now      func() time.Time
}

func NewArea() *Area {
	return &Area{
		run:      emptyRun(),
		progress: Progress{Status: StatusIdle},
		now:      time.Now,
	}
}

// SetRunName starts configuring a fresh run. Live progress is reset unless a
// launch is still active.
func (a *Area) SetRunName(name, timestamp string) Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.run = emptyRun()
	a.run.Id = DeriveRunID(name, timestamp)
	a.run.Name = name
	a.run.Time = timestamp

	if a.cancel == nil {
		a.progress = Progress{Status: StatusIdle, Seq: a.progress.Seq + 1}
	}
	return cloneRun(a.run)
}

func (a *Area) ChooseCollections(ids []string) Run {
	return a.update(func(r *Run) { r.Collections = append([]string{}, ids...) })
}

func (a *Area) ChooseKeywordLists(ids []string) Run {
	return a.update(func(r *Run) { r.KeywordList = append([]string{}, ids...) })
}

func (a *Area) ChooseInterviews(selection json.RawMessage) Run {
	return a.update(func(r *Run) { r.Interviews = rawOrEmpty(selection) })
}

func (a *Area) ChooseInterviewees(selection json.RawMessage) Run {
	return a.update(func(r *Run) { r.Interviewees = rawOrEmpty(selection) })
}

func (a *Area) update(fn func(*Run)) Run {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.run)
	return cloneRun(a.run)
}

// MarkReportViewed points the staging record at an already completed run.
func (a *Area) MarkReportViewed(runId string) Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.run.Mode = ModeViewing
	a.run.Id = runId
	a.run.AfterRun = false

	if a.cancel == nil {
		a.progress = Progress{RunId: runId, Total: 100, Status: StatusIdle, Seq: a.progress.Seq + 1}
	}
	return cloneRun(a.run)
}

func (a *Area) Snapshot() Run {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneRun(a.run)
}

// BeginLaunch marks a launch of runId as active. cancel is called by Cancel.
// It fails with ErrRunInProgress while another launch is active.
func (a *Area) BeginLaunch(attemptId, runId string, cancel context.CancelFunc) (Progress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return a.progress, ErrRunInProgress
	}

	started := a.now()
	a.cancel = cancel
	a.run.AfterRun = true
	a.progress = Progress{
		AttemptId: attemptId,
		RunId:     runId,
		Total:     0,
		Message:   StartingMessage,
		Status:    StatusRunning,
		StartedAt: &started,
		Seq:       a.progress.Seq + 1,
	}
	return a.progress, nil
}

// ReportProgress and ReportMessage apply one protocol message. Messages for
// an attempt that is no longer active are dropped (ok=false).
func (a *Area) ReportProgress(attemptId string, total int) (Progress, bool) {
	return a.report(attemptId, func(p *Progress) { p.Total = total })
}

func (a *Area) ReportMessage(attemptId, message string) (Progress, bool) {
	return a.report(attemptId, func(p *Progress) { p.Message = message })
}

func (a *Area) report(attemptId string, fn func(*Progress)) (Progress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil || a.progress.AttemptId != attemptId {
		return a.progress, false
	}
	fn(&a.progress)
	a.progress.Seq++
	return a.progress, true
}

// Finish records how the active attempt ended and releases the launch slot.
func (a *Area) Finish(attemptId string, status Status, exitCode *int, errMsg string) (Progress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil || a.progress.AttemptId != attemptId {
		return a.progress, false
	}

	finished := a.now()
	a.cancel = nil
	a.progress.Status = status
	a.progress.ExitCode = exitCode
	a.progress.Error = errMsg
	a.progress.FinishedAt = &finished
	a.progress.Seq++
	return a.progress, true
}

// Cancel stops the active launch. The launch itself records the outcome.
func (a *Area) Cancel() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return ErrNoActiveRun
	}
	cancel()
	return nil
}

func (a *Area) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

func (a *Area) Progress() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

func cloneRun(r Run) Run {
	r.Collections = append([]string{}, r.Collections...)
	r.KeywordList = append([]string{}, r.KeywordList...)
	r.Interviews = append(json.RawMessage(nil), r.Interviews...)
	r.Interviewees = append(json.RawMessage(nil), r.Interviewees...)
	return r
}

func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`""`)
	}
	return append(json.RawMessage(nil), raw...)
}
