package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/app"
	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/config"
	"github.com/campusq/queuedesk/internal/notify"
	"github.com/campusq/queuedesk/internal/repository"
	"github.com/campusq/queuedesk/internal/service"
)

// App holds the wired application dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	clock  clock.Clock
	ctx    context.Context

	slots       *service.SlotService
	bookings    *service.BookingService
	emergencies *service.EmergencyService
	enquiries   *service.EnquiryService
	notifier    *notify.Notifier
}

var application *App

func main() {
	rootCmd := &cobra.Command{
		Use:   "queuedesk",
		Short: "QueueDesk - counter appointment and queue management",
		Long:  `QueueDesk manages admin counter slots, bookings, emergency requests and the fake-enquiry policy.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				if application.pool != nil {
					application.pool.Close()
				}
				if application.logger != nil {
					application.logger.Sync()
				}
			}
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(resetWarningsCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(availabilityCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp wires config, logger, database pool and the service layer.
func initApp() error {
	application = &App{ctx: context.Background()}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	application.cfg = cfg

	application.logger = app.NewLogger(cfg.Environment)
	application.logger.Info("Starting queuedesk", zap.String("environment", cfg.Environment))

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("init clock: %w", err)
	}
	application.clock = clk

	pool, err := pgxpool.New(application.ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(application.ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	application.pool = pool

	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	emergencyRepo := repository.NewEmergencyRepository(pool)
	enquiryRepo := repository.NewEnquiryLogRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	counterRepo := repository.NewCounterRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	notifier := notify.New(notificationRepo, application.logger)
	application.notifier = notifier

	application.enquiries = service.NewEnquiryService(
		enquiryRepo, userRepo, notifier, clk,
		cfg.FakeEnquiryThreshold, cfg.FakeEnquiryWindow(),
		application.logger,
	)
	application.slots = service.NewSlotService(
		slotRepo, counterRepo, clk, cfg.SlotCapacity, application.logger,
	)
	application.bookings = service.NewBookingService(
		slotRepo, bookingRepo, counterRepo, userRepo,
		application.enquiries, notifier, clk, application.logger,
	)
	application.emergencies = service.NewEmergencyService(
		emergencyRepo, slotRepo, bookingRepo, counterRepo, userRepo,
		notifier, clk, cfg.SlotCapacity, application.logger,
	)

	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the background scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := application

			migrator, err := app.NewMigrator(a.pool, a.cfg.MigrationsDir, a.logger)
			if err != nil {
				return fmt.Errorf("init migrator: %w", err)
			}
			if err := migrator.Run(a.ctx); err != nil {
				migrator.Close()
				return err
			}
			migrator.Close()

			scheduler := app.NewScheduler(
				a.emergencies, a.clock,
				a.cfg.EmergencyCutoff, a.cfg.SweepInterval,
				a.logger,
			)

			ctx, cancel := context.WithCancel(a.ctx)
			defer cancel()
			scheduler.Start(ctx)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			sig := <-stop

			a.logger.Info("Shutting down", zap.String("signal", sig.String()))
			scheduler.Stop()
			cancel()

			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := application

			migrator, err := app.NewMigrator(a.pool, a.cfg.MigrationsDir, a.logger)
			if err != nil {
				return fmt.Errorf("init migrator: %w", err)
			}
			defer migrator.Close()

			if err := migrator.Run(a.ctx); err != nil {
				return err
			}

			version, err := migrator.Version(a.ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database is at migration version %d\n", version)

			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Auto-reject stale pending emergency requests once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := application.emergencies.SweepAutoReject(application.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Auto-rejected %d emergency request(s)\n", count)
			return nil
		},
	}
}

func resetWarningsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-warnings <student_id>",
		Short: "Clear a student's fake-enquiry warnings and restore the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("student_id must be a number: %w", err)
			}

			if err := application.enquiries.Reset(application.ctx, studentID); err != nil {
				return err
			}

			fmt.Printf("Warnings cleared for student %d\n", studentID)
			return nil
		},
	}
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications <user_id>",
		Short: "List a user's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user_id must be a number: %w", err)
			}

			readID, _ := cmd.Flags().GetString("read")
			if readID != "" {
				if err := application.notifier.MarkRead(application.ctx, userID, readID); err != nil {
					return err
				}
			}

			inbox, err := application.notifier.Inbox(application.ctx, userID)
			if err != nil {
				return err
			}

			fmt.Printf("Found %d notification(s):\n\n", len(inbox))
			for _, n := range inbox {
				marker := " "
				if !n.IsRead {
					marker = "*"
				}
				fmt.Printf("%s [%s] %s - %s (%s)\n", marker, n.Kind, n.Title, n.Message, n.ID)
			}

			return nil
		},
	}

	cmd.Flags().String("read", "", "Mark the given notification id as read before listing")

	return cmd
}

func availabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "availability [date]",
		Short: "Show slot availability per counter (date as YYYY-MM-DD, default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := application

			date := a.clock.TodayStart()
			if len(args) > 0 {
				parsed, err := time.Parse("2006-01-02", args[0])
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
				date = parsed
			}

			availability, err := a.slots.ListAvailability(a.ctx, date)
			if err != nil {
				return err
			}

			for _, entry := range availability {
				fmt.Printf("\n%s (counter %d)\n", entry.Counter.Name, entry.Counter.Number)
				for _, slot := range entry.Slots {
					state := fmt.Sprintf("%d/%d", slot.CurrentBookings, slot.MaxCapacity)
					if slot.IsFull() {
						state = "FULL"
					}
					fmt.Printf("  %s - %s  %s\n", slot.StartTime, slot.EndTime, state)
				}
			}
			fmt.Println()

			return nil
		},
	}
}
