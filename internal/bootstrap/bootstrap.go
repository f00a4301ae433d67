package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nobelvoices/laureate-rag/internal/config"
	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
	"github.com/nobelvoices/laureate-rag/internal/core/usecase"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/chunking"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/extractor"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/extractor/pdfdoc"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/extractor/plaintext"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/llm/ollama"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/queue/nats"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/repository/postgres"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/resilience"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/roster"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/search"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/storage/localfs"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/themes"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/vector/flatindex"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/vector/qdrant"
	"github.com/nobelvoices/laureate-rag/internal/observability/logging"
)

// Retrieval execution modes.
const (
	ModeInProcess  = "inprocess"
	ModeSubprocess = "subprocess"
	ModeRemote     = "remote"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Laureates ports.LaureateRepository

	IngestUC  ports.SpeechIngestor
	ProcessUC ports.SpeechProcessor
	QueryUC   ports.QueryRouter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("laureate-rag", cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure speeches schema: %w", err)
	}
	laureateRepo := postgres.NewLaureateRepository(db)
	if err := laureateRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure laureates schema: %w", err)
	}
	seedLaureates(ctx, cfg, laureateRepo, logger)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	lexicon, err := themes.NewLexicon(cfg.ThemeLexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load theme lexicon: %w", err)
	}

	themeStore, err := themes.NewStore(cfg.ThemeStorePath, cfg.EmbeddingModelID, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("open theme embedding store: %w", err)
	}
	// A cold sync needs the embedding model up; expansion degrades to the
	// legacy path until the vectors materialize, so boot continues. A
	// dimension mismatch is config/model skew, not transient, and stops boot.
	if err := themeStore.Sync(ctx, embedder, lexicon.Keywords()); err != nil {
		if domain.IsKind(err, domain.ErrDimensionMismatch) {
			return nil, fmt.Errorf("sync theme embedding store: %w", err)
		}
		logger.Warn("theme_store_sync_failed", "error", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	backend, indexer, err := buildSearchBackend(cfg, embedder, vectorDB, logger)
	if err != nil {
		return nil, err
	}

	classifier, err := buildClassifier(ctx, cfg, laureateRepo, logger)
	if err != nil {
		return nil, err
	}

	expander, boostCoeff := buildExpansion(cfg, lexicon, themeStore, embedder, logger)
	retriever := usecase.NewWeightedRetriever(backend, expander, boostCoeff, cfg.MaxTermConcurrency, logger)
	fallback := usecase.NewFallbackEngine(logger)

	queryUC := usecase.NewRouterUseCase(
		classifier,
		retriever,
		backend,
		fallback,
		laureateRepo,
		generator,
		usecase.RouterConfig{
			TopK:      cfg.RetrievalTopK,
			MinReturn: cfg.MinReturn,
			MaxReturn: cfg.MaxReturn,
			Thresholds: map[domain.Intent]float64{
				domain.IntentFactual:    cfg.FactualThreshold,
				domain.IntentThematic:   cfg.ThematicThreshold,
				domain.IntentGenerative: cfg.GenerativeThreshold,
			},
		},
		logger,
	)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	texts := extractor.NewDispatcher(plaintext.NewExtractor(storage), pdfdoc.NewExtractor(storage))

	ingestUC := usecase.NewIngestSpeechUseCase(repo, storage, queue)
	processUC := usecase.NewProcessSpeechUseCase(repo, texts, chunker, embedder, indexer)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		Laureates: laureateRepo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = themeStore.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// buildSearchBackend selects the retrieval execution mode and the matching
// chunk indexer. In-process mode keeps everything in one memory-resident
// index; subprocess mode delegates searches to a worker binary; remote mode
// talks to Qdrant directly.
func buildSearchBackend(
	cfg config.Config,
	embedder ports.Embedder,
	vectorDB *qdrant.Client,
	logger *slog.Logger,
) (ports.SearchBackend, ports.ChunkIndexer, error) {
	switch cfg.RetrievalMode {
	case ModeInProcess:
		index := flatindex.New()
		return search.NewVectorBackend(embedder, index), index, nil
	case ModeSubprocess:
		timeout := time.Duration(cfg.SearchWorkerWaitMS) * time.Millisecond
		backend := search.NewSubprocessBackend(embedder, cfg.SearchWorkerPath, timeout, logger)
		// The worker owns its own search path; new chunks still land in the
		// shared vector store.
		return backend, vectorDB, nil
	case ModeRemote:
		return search.NewVectorBackend(embedder, vectorDB), vectorDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown retrieval mode %q", cfg.RetrievalMode)
	}
}

func buildClassifier(
	ctx context.Context,
	cfg config.Config,
	laureateRepo ports.LaureateRepository,
	logger *slog.Logger,
) (*usecase.Classifier, error) {
	intentCfg, err := usecase.LoadIntentConfig(cfg.IntentConfigPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load intent config: %w", err)
		}
		logger.Warn("intent_config_missing", "path", cfg.IntentConfigPath, "fallback", "built-in defaults")
		intentCfg = usecase.DefaultIntentConfig()
	}
	if cfg.MinIntentConfidence > 0 {
		intentCfg.MinConfidence = cfg.MinIntentConfidence
	}

	laureates, err := laureateRepo.List(ctx)
	if err != nil {
		logger.Warn("laureate_list_unavailable", "error", err)
	}
	return usecase.NewClassifier(intentCfg, laureates, cfg.MaxScopedEntities), nil
}

func buildExpansion(
	cfg config.Config,
	lexicon ports.ThemeLexicon,
	themeStore ports.ThemeEmbeddings,
	embedder ports.Embedder,
	logger *slog.Logger,
) (ports.ExpansionStrategy, float64) {
	if cfg.ExpansionStrategy == "legacy" {
		// Legacy expansion carries no similarity signal, so boosting is a
		// no-op and the coefficient is forced to zero.
		return usecase.NewLegacyExpansion(lexicon), 0
	}
	return usecase.NewRankedExpansion(lexicon, themeStore, embedder, cfg.SimilarityThreshold, logger), cfg.BoostCoefficient
}

// seedLaureates loads the award roster spreadsheet into postgres. A missing
// roster is not fatal; the table may already be populated.
func seedLaureates(ctx context.Context, cfg config.Config, repo ports.LaureateRepository, logger *slog.Logger) {
	if cfg.LaureateRosterXLS == "" {
		return
	}
	if _, err := os.Stat(cfg.LaureateRosterXLS); err != nil {
		logger.Info("laureate_roster_not_found", "path", cfg.LaureateRosterXLS)
		return
	}
	laureates, err := roster.LoadXLSX(cfg.LaureateRosterXLS)
	if err != nil {
		logger.Warn("laureate_roster_load_failed", "path", cfg.LaureateRosterXLS, "error", err)
		return
	}
	if err := repo.Upsert(ctx, laureates); err != nil {
		logger.Warn("laureate_roster_upsert_failed", "error", err)
		return
	}
	logger.Info("laureate_roster_seeded", "count", len(laureates))
}
