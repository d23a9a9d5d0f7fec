package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gogetteranushka/wellness-agent-core/internal/config"
	"github.com/gogetteranushka/wellness-agent-core/internal/handlers"
	"github.com/gogetteranushka/wellness-agent-core/internal/metrics"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
	eventsws "github.com/gogetteranushka/wellness-agent-core/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

const supabaseStoreTimeout = 15 * time.Second

// Deps carries the process-level collaborators built in main.
type Deps struct {
	DB      *pgxpool.Pool
	Hub     *eventsws.Hub
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

type stores struct {
	profiles   services.ProfileStore
	conditions services.ConditionStore
}

func newStores(cfg *config.Config, db *pgxpool.Pool) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSupabase:
		store := services.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, &http.Client{Timeout: supabaseStoreTimeout})
		return stores{profiles: store, conditions: store}, nil
	case config.StoreDriverPostgres:
		if db == nil {
			return stores{}, fmt.Errorf("store driver %q requires a database pool", cfg.StoreDriver)
		}
		return stores{
			profiles:   repository.NewUserProfileRepository(db),
			conditions: repository.NewConditionRepository(db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Deps) error {
	st, err := newStores(cfg, deps.DB)
	if err != nil {
		return err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var events services.EventPublisher
	if deps.Hub != nil {
		events = deps.Hub
	}

	intakeService := services.NewIntakeService(st.profiles, st.conditions, services.IntakeServiceOptions{
		DraftTTL:      cfg.DraftTTL,
		DraftCapacity: cfg.DraftCapacity,
		Events:        events,
		Metrics:       deps.Metrics,
		Logger:        logger,
	})
	profileService := services.NewProfileService(st.profiles, st.conditions, services.ProfileServiceOptions{
		DraftTTL:      cfg.DraftTTL,
		DraftCapacity: cfg.DraftCapacity,
		Events:        events,
		Metrics:       deps.Metrics,
		Logger:        logger,
	})
	dispatcher := services.NewDispatcher(services.DispatcherOptions{
		AIBaseURL:   cfg.AIAPIURL,
		ChatBaseURL: cfg.ChatAPIURL,
		Timeout:     cfg.AITimeout,
		RateLimit:   cfg.AIRateLimit,
		Metrics:     deps.Metrics,
		Logger:      logger,
	})

	meHandler := handlers.NewMeHandler(profileService)
	intakeHandler := handlers.NewIntakeHandler(intakeService)
	profileHandler := handlers.NewProfileHandler(profileService)
	actionHandler := handlers.NewActionHandler(dispatcher)

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")
	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	v1.Get("/me", meHandler.Me)

	intake := v1.Group("/intake")
	intake.Get("/", intakeHandler.GetState)
	intake.Get("/options", intakeHandler.Options)
	intake.Put("/demographics", intakeHandler.SetDemographics)
	intake.Post("/conditions/toggle", intakeHandler.ToggleCondition)
	intake.Put("/diet", intakeHandler.SetDietType)
	intake.Put("/goal", intakeHandler.SetGoal)
	intake.Post("/next", intakeHandler.Next)
	intake.Post("/back", intakeHandler.Back)
	intake.Post("/submit", intakeHandler.Submit)
	intake.Delete("/", intakeHandler.Reset)

	users := v1.Group("/users")
	users.Get("/profile", profileHandler.GetProfile)
	users.Put("/profile", profileHandler.UpdateProfile)
	users.Get("/profile/edit", profileHandler.GetEditor)
	users.Post("/profile/edit", profileHandler.BeginEdit)
	users.Patch("/profile/edit", profileHandler.SetFields)
	users.Post("/profile/edit/commit", profileHandler.Commit)
	users.Delete("/profile/edit", profileHandler.Cancel)
	users.Get("/conditions", profileHandler.ListConditions)
	users.Post("/conditions", profileHandler.LogCondition)

	ai := v1.Group("/ai")
	for name, methods := range services.ActionNames() {
		if name == services.ActionChat {
			continue
		}
		for _, method := range methods {
			ai.Add(method, "/"+name, actionHandler.Forward(name))
		}
	}
	ai.Post("/chat", actionHandler.Chat)

	if deps.Hub != nil {
		eventsHandler := handlers.NewEventsHandler(deps.Hub)
		v1.Get("/ws", eventsHandler.Upgrade, websocket.New(eventsHandler.HandleWebSocket))
	}

	if err := registerDocsRoutes(app, cfg); err != nil {
		return fmt.Errorf("register docs routes: %w", err)
	}

	logger.Info("routes registered", "store_driver", cfg.StoreDriver, "docs", cfg.DocsEnabled())
	return nil
}
