package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liverton-codes/liverton-api/internal/config"
	"github.com/liverton-codes/liverton-api/internal/database"
	"github.com/liverton-codes/liverton-api/internal/engagement"
	"github.com/liverton-codes/liverton-api/internal/identity"
	"github.com/liverton-codes/liverton-api/internal/intake"
	"github.com/liverton-codes/liverton-api/internal/logging"
	"github.com/liverton-codes/liverton-api/internal/offline"
	"github.com/liverton-codes/liverton-api/internal/push"
	"github.com/liverton-codes/liverton-api/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "liverton-api",
		Short: "Liverton Codes engagement backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("allowed-origins", defaults.GetString("http.allowed_origins"), "Comma-separated CORS origins")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("identity-path", defaults.GetString("identity.path"), "Instance identity store path")
	cmd.PersistentFlags().String("contact-email", defaults.GetString("contact.email"), "Studio contact email address")
	cmd.PersistentFlags().String("whatsapp-number", defaults.GetString("contact.whatsapp_number"), "Studio WhatsApp number")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("vapid-public-key", "", "VAPID public key (overrides env)")
	cmd.PersistentFlags().String("vapid-private-key", "", "VAPID private key (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "identity.path", "identity-path")
	bindFlag(cmd, "contact.email", "contact-email")
	bindFlag(cmd, "contact.whatsapp_number", "whatsapp-number")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "push.vapid_public_key", "vapid-public-key")
	bindFlag(cmd, "push.vapid_private_key", "vapid-private-key")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	instanceIdentity := identity.NewProvider(identity.ProviderConfig{
		Store:  identity.NewFileStore(appConfig.IdentityPath),
		Logger: logger,
	})
	logger.Info("instance identity ready", zap.String("device_id", instanceIdentity.DeviceID()))

	idProvider := engagement.NewUUIDProvider()

	engagementService, err := engagement.NewService(engagement.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	intakeService, err := intake.NewService(intake.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	pushService, err := push.NewService(push.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	notifier := push.NewNotifier(pushService, push.NotifierConfig{
		VAPIDPublicKey:  appConfig.VAPIDPublicKey,
		VAPIDPrivateKey: appConfig.VAPIDPrivateKey,
		Subscriber:      appConfig.PushSubscriber,
		Logger:          logger,
	})
	if !notifier.Enabled() {
		logger.Info("push broadcasting disabled, no VAPID keys configured")
	}

	deviceRegistry, err := identity.NewRegistry(identity.RegistryConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		EngagementService: engagementService,
		IntakeService:     intakeService,
		PushService:       pushService,
		Notifier:          notifier,
		DeviceRegistry:    deviceRegistry,
		Dispatcher:        server.NewRealtimeDispatcher(),
		OfflineManifest:   offline.DefaultManifest(),
		AllowedOrigins:    appConfig.AllowedOrigins,
		ContactEmail:      appConfig.ContactEmail,
		WhatsAppNumber:    appConfig.WhatsAppNumber,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
