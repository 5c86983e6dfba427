package router

import (
	"github.com/annadaan/annadaan-backend/internal/application"
	"github.com/annadaan/annadaan-backend/internal/container"
	pginfra "github.com/annadaan/annadaan-backend/internal/infrastructure/postgres"
	handlers "github.com/annadaan/annadaan-backend/internal/interface/http"
	"github.com/annadaan/annadaan-backend/internal/router/modules"
)

// InitModules constructs every feature module from the container
// singletons and adds them to the registry. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	donationRepo := pginfra.NewDonationRepository(container.GetPGPool())

	userSvc := application.NewUserService(userRepo, container.GetJWT(), container.GetRedis(), logger)

	var events application.EventPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		events = pub
	}
	donationSvc := application.NewDonationService(donationRepo, userRepo, events, logger)
	donationSvc.ES = container.GetES()
	donationSvc.ESIndex = cfg.ESDonationsIndex
	donationSvc.GCS = container.GetGCS()
	donationSvc.GCSBucket = cfg.GCSBucket
	if cfg.NearbyMaxDistanceMeters > 0 {
		donationSvc.NearbyMaxMeters = cfg.NearbyMaxDistanceMeters
	}

	authHandler := handlers.NewAuthHandler(userSvc, logger, cfg.CookieDomain, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(userSvc, logger)
	donationHandler := handlers.NewDonationHandler(donationSvc, logger)

	r.Add(
		modules.NewAuthModule(authHandler),
		modules.NewUserModule(userHandler),
		modules.NewDonationModule(donationHandler),
	)
}
