package bootstrap

import (
	"context"
	"os"

	"winnow-be/internal/config"
	"winnow-be/internal/controller"
	"winnow-be/internal/handler"
	"winnow-be/internal/metrics"
	"winnow-be/internal/pkg/logger"
	"winnow-be/internal/repository/contract"
	"winnow-be/internal/repository/implementation"
	"winnow-be/internal/repository/memory"
	"winnow-be/internal/service"
	"winnow-be/internal/websocket"
	"winnow-be/pkg/events"
	"winnow-be/pkg/filestore"
	"winnow-be/pkg/staging"
	"winnow-be/pkg/toolscript"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	CollectionController  controller.ICollectionController
	KeywordListController controller.IKeywordListController
	RunController         controller.IRunController
	MetadataController    controller.IMetadataController
	LogController         controller.ILogController

	// WebSockets
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ProgressBroadcaster service.IProgressBroadcaster

	SessionRepository contract.SessionRepository
	Metrics           *metrics.Recorder
	Logger            logger.ILogger

	runService service.IRunService
	pubSub     *gochannel.GoChannel
}

// Options overrides collaborators in tests.
type Options struct {
	Launcher toolscript.Launcher
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger, opts Options) (*Container, error) {
	// 1. Storage
	if err := cfg.Storage.EnsureLayout(); err != nil {
		return nil, err
	}
	collectionStore, err := filestore.New(cfg.Storage.CollectionsDir())
	if err != nil {
		return nil, err
	}
	metadataStore, err := filestore.New(cfg.Storage.MetadataDir())
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	sessionRepo := implementation.NewSessionRepository(cfg.Storage.DataFile(), collectionStore, sysLogger, recorder)
	resultRepo := implementation.NewRunResultRepository(cfg.Storage.RunFile())
	outcomeRepo := memory.NewOutcomeRepository(cfg.App.OutcomeRetention)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)

	wsHub := websocket.NewHub(sysLogger)
	publisherService := service.NewPublisherService(events.TopicRunProgress, pubSub)
	broadcaster := service.NewProgressBroadcaster(pubSub, events.TopicRunProgress, wsHub, sysLogger)

	// 3. Services
	launcher := opts.Launcher
	if launcher == nil {
		launcher = &toolscript.ExecLauncher{
			Command:   cfg.ToolCommand(),
			Dir:       cfg.Storage.Root,
			Stderr:    os.Stderr,
			WaitDelay: cfg.Tool.WaitDelay,
		}
	}

	runService := service.NewRunService(
		staging.NewArea(),
		sessionRepo,
		resultRepo,
		outcomeRepo,
		launcher,
		publisherService,
		recorder,
		sysLogger,
		cfg.Tool.Timeout,
	)
	collectionService := service.NewCollectionService(sessionRepo)
	keywordListService := service.NewKeywordListService(sessionRepo)
	runHistoryService := service.NewRunHistoryService(sessionRepo)
	metadataService := service.NewMetadataService(metadataStore, sysLogger)
	logService := service.NewLogService(sysLogger)

	// 4. Controllers
	return &Container{
		CollectionController:  controller.NewCollectionController(collectionService),
		KeywordListController: controller.NewKeywordListController(keywordListService),
		RunController:         controller.NewRunController(runHistoryService, runService),
		MetadataController:    controller.NewMetadataController(metadataService),
		LogController:         controller.NewLogController(logService),

		ProgressHandler: handler.NewProgressHandler(runService, wsHub, sysLogger),
		WebSocketHub:    wsHub,

		ProgressBroadcaster: broadcaster,
		SessionRepository:   sessionRepo,
		Metrics:             recorder,
		Logger:              sysLogger,

		runService: runService,
		pubSub:     pubSub,
	}, nil
}

// Start loads the session document and starts the background workers. They
// stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	if _, err := c.SessionRepository.Load(ctx); err != nil {
		return err
	}

	go c.WebSocketHub.Run(ctx)
	return c.ProgressBroadcaster.Consume(ctx)
}

// CancelActiveRun stops a tool run that is still going. Runs are detached from
// their requests, so shutdown has to end them explicitly.
func (c *Container) CancelActiveRun() {
	if err := c.runService.Cancel(context.Background()); err == nil {
		c.Logger.Info("Container", "Active run canceled for shutdown", nil)
	}
}

// Close cancels any active run and closes the event bus.
func (c *Container) Close() error {
	c.CancelActiveRun()
	return c.pubSub.Close()
}
