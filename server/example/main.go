package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cyp0633/libcalsched/server"
	"github.com/cyp0633/libcalsched/server/auth/memory"
	"github.com/cyp0633/libcalsched/server/config"
	"github.com/cyp0633/libcalsched/server/schedule"
	"github.com/cyp0633/libcalsched/server/storage"
)

func main() {
	configPath := flag.String("config", "schedule.yaml", "path to the YAML configuration file")
	initConfig := flag.Bool("init", false, "write the default configuration to -config and exit")
	seed := flag.Bool("seed", false, "load a week of sample events on startup")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for use in auth.users and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := memory.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if *initConfig {
		if err := config.Save(*configPath, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default configuration to %s\n", *configPath)
		return
	}

	if err := run(*configPath, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, server.WithLogger(logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	svc := srv.Service()
	svc.Subscribe(func(snapshot []storage.Event) error {
		logger.Debug("schedule changed", "events", len(snapshot))
		return nil
	})

	if seed {
		if err := seedEvents(ctx, svc, svc.Location()); err != nil {
			return fmt.Errorf("failed to seed events: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting schedule server", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// seedEvents loads a small course schedule starting on the current week's Monday.
func seedEvents(ctx context.Context, svc *schedule.Service, loc *time.Location) error {
	now := time.Now().In(loc)
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -((int(now.Weekday())+6)%7))
	until := monday.AddDate(0, 3, 0)

	lecture := storage.Event{
		Title:       "Linear Algebra",
		StartTime:   monday.Add(9 * time.Hour),
		EndTime:     monday.Add(10*time.Hour + 30*time.Minute),
		Type:        storage.EventTypeClass,
		Location:    "Room 101",
		CourseID:    "math101",
		TeacherID:   "t-lee",
		ClassID:     "cs-2025",
		Attendees:   []string{"alice", "bob"},
		Color:       "#3366ff",
		IsRecurring: true,
		RecurrencePattern: &storage.RecurrencePattern{
			Type:       storage.FrequencyWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
			EndDate:    &until,
		},
	}
	midterm := storage.Event{
		Title:     "Linear Algebra Midterm",
		StartTime: monday.AddDate(0, 0, 4).Add(14 * time.Hour),
		EndTime:   monday.AddDate(0, 0, 4).Add(16 * time.Hour),
		Type:      storage.EventTypeExam,
		Location:  "Hall A",
		CourseID:  "math101",
		TeacherID: "t-lee",
		Attendees: []string{"alice", "bob"},
	}
	homework := storage.Event{
		Title:     "Problem Set 1",
		StartTime: monday.AddDate(0, 0, 2).Add(23 * time.Hour),
		EndTime:   monday.AddDate(0, 0, 2).Add(23*time.Hour + 59*time.Minute),
		Type:      storage.EventTypeAssignment,
		CourseID:  "math101",
		Attendees: []string{"alice"},
	}

	_, err := svc.CreateBulkEvents(ctx, []storage.Event{lecture, midterm, homework})
	return err
}
