package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"winnow-be/internal/dto"
	"winnow-be/internal/entity"
	"winnow-be/internal/metrics"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/logger"
	"winnow-be/internal/repository/contract"
	"winnow-be/internal/repository/memory"
	"winnow-be/pkg/events"
	"winnow-be/pkg/staging"
	"winnow-be/pkg/toolscript"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const runModule = "RunService"

type IRunService interface {
	CurrentRun(ctx context.Context) staging.Run
	SetRunName(ctx context.Context, name, timestamp string) staging.Run
	ChooseCollections(ctx context.Context, ids []string) staging.Run
	ChooseKeywordLists(ctx context.Context, ids []string) staging.Run
	ChooseInterviews(ctx context.Context, selection json.RawMessage) staging.Run
	ChooseInterviewees(ctx context.Context, selection json.RawMessage) staging.Run
	MarkReportViewed(ctx context.Context, runId string) staging.Run

	// Launch runs the tool for the staged run and returns once it has ended.
	Launch(ctx context.Context, interviewees json.RawMessage) (staging.Progress, error)
	Progress(ctx context.Context) staging.Progress
	Outcome(ctx context.Context, attemptId string) (staging.Progress, error)
	Cancel(ctx context.Context) error

	CurrentReport(ctx context.Context) (entity.RunReport, error)
	MaterializeResult(ctx context.Context, runId string) (entity.RunReport, error)
	UpdateKeywordContexts(ctx context.Context, req *dto.UpdateKeywordContextsRequest) error
}

// runInput is the JSON argument handed to the tool.
type runInput struct {
	Id           string               `json:"id"`
	Name         string               `json:"name"`
	Date         string               `json:"date"`
	Interviews   json.RawMessage      `json:"interviews"`
	Interviewees json.RawMessage      `json:"interviewees"`
	Collections  []entity.Collection  `json:"collections"`
	KeywordList  []entity.KeywordList `json:"keywordList"`
}

type runService struct {
	area        *staging.Area
	sessionRepo contract.SessionRepository
	resultRepo  contract.RunResultRepository
	outcomes    *memory.OutcomeRepository
	launcher    toolscript.Launcher
	publisher   IPublisherService
	metrics     *metrics.Recorder
	logger      logger.ILogger
	timeout     time.Duration
}

func NewRunService(
	area *staging.Area,
	sessionRepo contract.SessionRepository,
	resultRepo contract.RunResultRepository,
	outcomes *memory.OutcomeRepository,
	launcher toolscript.Launcher,
	publisher IPublisherService,
	rec *metrics.Recorder,
	log logger.ILogger,
	timeout time.Duration,
) IRunService {
	return &runService{
		area:        area,
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		outcomes:    outcomes,
		launcher:    launcher,
		publisher:   publisher,
		metrics:     rec,
		logger:      log,
		timeout:     timeout,
	}
}

func (s *runService) CurrentRun(ctx context.Context) staging.Run {
	return s.area.Snapshot()
}

func (s *runService) SetRunName(ctx context.Context, name, timestamp string) staging.Run {
	run := s.area.SetRunName(name, timestamp)
	s.logger.Info(runModule, "Current run name set", map[string]interface{}{"name": name, "time": timestamp, "id": run.Id})
	return run
}

func (s *runService) ChooseCollections(ctx context.Context, ids []string) staging.Run {
	s.logger.Info(runModule, "Current run collections updated", map[string]interface{}{"collections": ids})
	return s.area.ChooseCollections(ids)
}

func (s *runService) ChooseKeywordLists(ctx context.Context, ids []string) staging.Run {
	s.logger.Info(runModule, "Current run keyword lists updated", map[string]interface{}{"keyword_lists": ids})
	return s.area.ChooseKeywordLists(ids)
}

func (s *runService) ChooseInterviews(ctx context.Context, selection json.RawMessage) staging.Run {
	s.logger.Info(runModule, "Current run interview metadata updated", map[string]interface{}{"interviews": string(selection)})
	return s.area.ChooseInterviews(selection)
}

func (s *runService) ChooseInterviewees(ctx context.Context, selection json.RawMessage) staging.Run {
	s.logger.Info(runModule, "Current run interviewees updated", map[string]interface{}{"interviewees": string(selection)})
	return s.area.ChooseInterviewees(selection)
}

func (s *runService) MarkReportViewed(ctx context.Context, runId string) staging.Run {
	s.logger.Info(runModule, "Viewed report updated", map[string]interface{}{"id": runId})
	return s.area.MarkReportViewed(runId)
}

func (s *runService) Launch(ctx context.Context, interviewees json.RawMessage) (staging.Progress, error) {
	if len(interviewees) > 0 {
		s.area.ChooseInterviewees(interviewees)
	}

	run := s.area.Snapshot()
	if run.Mode != staging.ModeConfiguring || run.Id == "" {
		return staging.Progress{}, apperror.Conflict("run.launch", "no run is being configured; set a run name first")
	}

	input, err := s.resolve(ctx, run)
	if err != nil {
		return staging.Progress{}, err
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return staging.Progress{}, apperror.Invalid("run.launch", "encode run input: %v", err)
	}

	ctx, span := otel.Tracer("winnow-be/run").Start(ctx, "run.launch")
	defer span.End()

	// The run outlives nothing but its own deadline and Cancel.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if s.timeout > 0 {
		runCtx, cancel = withTimeout(runCtx, cancel, s.timeout)
	}
	defer cancel()

	attemptId := uuid.NewString()
	span.SetAttributes(attribute.String("run.id", run.Id), attribute.String("run.attempt_id", attemptId))

	started, err := s.area.BeginLaunch(attemptId, run.Id, cancel)
	if errors.Is(err, staging.ErrRunInProgress) {
		span.SetStatus(codes.Error, err.Error())
		return started, apperror.Conflict("run.launch", "run %q is still in progress", started.RunId)
	}
	s.metrics.RunStarted()
	s.publish(started)
	s.logger.Info(runModule, "Running tool script", map[string]interface{}{"id": run.Id, "attempt_id": attemptId})

	proc, err := s.launcher.Start(runCtx, payload)
	if err != nil {
		final := s.finish(attemptId, toolscript.Result{Status: toolscript.StatusFailed, Err: err}, started)
		span.SetStatus(codes.Error, err.Error())
		return final, apperror.IOFailure("run.launch", err)
	}

	readErr := toolscript.Consume(proc.Stdout(), toolscript.Handler{
		OnMessage: func(text string) {
			if p, ok := s.area.ReportMessage(attemptId, text); ok {
				s.publish(p)
			}
		},
		OnProgress: func(percent int) {
			if p, ok := s.area.ReportProgress(attemptId, percent); ok {
				s.publish(p)
			}
		},
		OnInvalid: func(line string, err error) {
			s.logger.Warn(runModule, "Skipping malformed progress line", map[string]interface{}{"attempt_id": attemptId, "line": line, "error": err.Error()})
		},
	})
	if readErr != nil {
		s.logger.Warn(runModule, "Progress stream ended with error", map[string]interface{}{"attempt_id": attemptId, "error": readErr.Error()})
	}

	result := toolscript.Classify(runCtx, proc.Wait())
	final := s.finish(attemptId, result, started)
	span.SetAttributes(attribute.String("run.status", string(final.Status)))
	if final.Status != staging.StatusSucceeded {
		span.SetStatus(codes.Error, string(final.Status))
	}
	return final, nil
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}

// resolve looks up every staged id. Nothing is spawned when one is missing.
func (s *runService) resolve(ctx context.Context, run staging.Run) (*runInput, error) {
	input := &runInput{
		Id:           run.Id,
		Name:         run.Name,
		Date:         run.Time,
		Interviews:   run.Interviews,
		Interviewees: run.Interviewees,
		Collections:  make([]entity.Collection, 0, len(run.Collections)),
		KeywordList:  make([]entity.KeywordList, 0, len(run.KeywordList)),
	}

	for _, id := range run.Collections {
		c, err := s.sessionRepo.GetCollection(ctx, id)
		if err != nil {
			return nil, apperror.Reference("run.launch", "collection %q does not exist", id)
		}
		input.Collections = append(input.Collections, c)
	}
	for _, id := range run.KeywordList {
		kwl, err := s.sessionRepo.GetKeywordList(ctx, id)
		if err != nil {
			return nil, apperror.Reference("run.launch", "keyword list %q does not exist", id)
		}
		input.KeywordList = append(input.KeywordList, kwl)
	}
	return input, nil
}

func (s *runService) finish(attemptId string, result toolscript.Result, started staging.Progress) staging.Progress {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	final, ok := s.area.Finish(attemptId, staging.Status(result.Status), result.ExitCode, errMsg)
	if !ok {
		return final
	}

	s.outcomes.Save(final)
	s.metrics.RunFinished(string(final.Status), final.FinishedAt.Sub(*started.StartedAt))
	s.publish(final)

	details := map[string]interface{}{"id": final.RunId, "attempt_id": attemptId, "status": final.Status}
	if final.ExitCode != nil {
		details["exit_code"] = *final.ExitCode
	}
	if final.Status == staging.StatusSucceeded {
		s.logger.Info(runModule, "Tool script finished", details)
	} else {
		details["error"] = errMsg
		s.logger.Error(runModule, "Tool script did not succeed", details)
	}
	return final
}

func (s *runService) publish(p staging.Progress) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(events.NewRunProgressEvent(p)); err != nil {
		s.logger.Warn(runModule, "Failed to publish progress", map[string]interface{}{"error": err.Error()})
	}
}

func (s *runService) Progress(ctx context.Context) staging.Progress {
	return s.area.Progress()
}

func (s *runService) Outcome(ctx context.Context, attemptId string) (staging.Progress, error) {
	outcome, ok := s.outcomes.Get(attemptId)
	if !ok {
		return staging.Progress{}, apperror.NotFound("run.outcome", "outcome %q", attemptId)
	}
	return outcome, nil
}

func (s *runService) Cancel(ctx context.Context) error {
	if err := s.area.Cancel(); err != nil {
		return apperror.Conflict("run.cancel", "%v", err)
	}
	s.logger.Info(runModule, "Cancel requested", nil)
	return nil
}

// CurrentReport returns the report of the staged or viewed run. A run still
// being configured has a report only once its launch has succeeded.
func (s *runService) CurrentReport(ctx context.Context) (entity.RunReport, error) {
	run := s.area.Snapshot()
	if run.Id == "" {
		return nil, apperror.Conflict("run.report", "no run is staged")
	}

	if run.Mode == staging.ModeConfiguring {
		if _, err := s.sessionRepo.GetRun(ctx, run.Id); err != nil {
			p := s.area.Progress()
			if p.RunId != run.Id || p.Status != staging.StatusSucceeded {
				return nil, apperror.Conflict("run.report", "run %q has not completed successfully", run.Id)
			}
		}
	}

	report, err := s.MaterializeResult(ctx, run.Id)
	if err != nil {
		return nil, err
	}
	s.logger.Info(runModule, "Report sent", map[string]interface{}{"id": run.Id})
	return report, nil
}

func (s *runService) MaterializeResult(ctx context.Context, runId string) (entity.RunReport, error) {
	return s.sessionRepo.MaterializeRun(ctx, runId, s.resultRepo.Read)
}

func (s *runService) UpdateKeywordContexts(ctx context.Context, req *dto.UpdateKeywordContextsRequest) error {
	runId := req.RunId
	if runId == "" {
		runId = s.area.Snapshot().Id
	}
	if runId == "" {
		return apperror.Invalid("run.keyword_contexts", "no run id given and no run is staged")
	}
	return s.sessionRepo.UpdateKeywordContexts(ctx, runId, req.IndividualRunName, req.Contexts)
}
