package main

import (
	"pipevine/cmd/internal/domain/sqlite"
	"pipevine/cmd/internal/domain/sqlite/repository"
	"pipevine/cmd/internal/integration/teams"
	"pipevine/cmd/internal/routes"
	"pipevine/cmd/internal/scheduling"
	"pipevine/cmd/internal/service"
	"pipevine/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	validate := validator.New()
	registerValidators(validate)

	err := godotenv.Load()
	if err != nil {
		log.Fatal("failed to load .env file", err)
	}

	// Init SQLite
	db, err := sqlite.Init()
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}

	// Meeting-link provider client
	provider, err := teams.InitClient()
	if err != nil {
		log.Fatal("failed to initialize meeting provider client", err)
	}

	// Getting repositories
	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	contactRepo := repository.NewContactRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)

	// Getting services
	meetingService := service.NewMeetingService(
		meetingRepo, userRepo, leadRepo, contactRepo,
		provider, validate, scheduling.NewClock(),
	)

	// Getting routes
	meetingRoutes := routes.NewMeetingDefault(meetingService)

	e := echo.New()
	e.Use(middleware.CORS())

	// Meetings
	e.GET("/api/meetings", meetingRoutes.GetMeetings)
	e.POST("/api/meetings", meetingRoutes.SaveMeeting)
	e.POST("/api/meetings/:id/cancel", meetingRoutes.CancelMeeting)

	// Editor helpers: slot choices, field reconciliation, instant
	// resolution, advisory conflict checks
	e.GET("/api/meetings/slots", meetingRoutes.GetSlots)
	e.POST("/api/meetings/reconcile", meetingRoutes.Reconcile)
	e.POST("/api/meetings/resolve", meetingRoutes.ResolveInstants)
	e.POST("/api/meetings/conflicts", meetingRoutes.DetectConflicts)

	err = e.Start(":6060")
	if err != nil {
		e.Logger.Fatal(err)
	}
}

func registerValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("iso8601", validators.IsIso8601)
	_ = validate.RegisterValidation("dateonly", validators.IsDateOnly)
	_ = validate.RegisterValidation("timeofday", validators.IsTimeOfDay)
}
