package main

import (
	"fmt"
	"time"

	"github.com/vytor/stepple/internal/config"
	"github.com/vytor/stepple/internal/db"
	"github.com/vytor/stepple/internal/docstore"
	"github.com/vytor/stepple/internal/friends"
	"github.com/vytor/stepple/internal/health"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/reconcile"
	"github.com/vytor/stepple/internal/repository/sqlite"
	"github.com/vytor/stepple/internal/stepstore"
)

// app is the device-side wiring shared by every command.
type app struct {
	device  *db.DB
	shared  *db.DB
	records *health.Records
	rec     *reconcile.Reconciler
	friends *friends.Service
	cfg     config.Config
}

func openApp() (*app, error) {
	cfg := config.Load()
	logger.SetDefault(logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithCaller(false),
	))
	if err := cfg.ValidateDevice(); err != nil {
		return nil, err
	}

	device, err := db.Open(cfg.DeviceDBPath)
	if err != nil {
		return nil, err
	}
	shared, err := db.Open(cfg.DBPath)
	if err != nil {
		device.Close()
		return nil, err
	}

	remote := stepstore.New(docstore.New(shared.DB))
	records := health.NewRecords(device.DB, health.WithInteractive(true))
	rec := reconcile.New(records,
		sqlite.NewStepCacheRepository(device.DB),
		sqlite.NewSettingsRepository(device.DB),
		remote,
		reconcile.WithBackfillDays(cfg.BackfillDays),
		reconcile.WithBackfillRate(cfg.BackfillRate),
	)

	return &app{
		device:  device,
		shared:  shared,
		records: records,
		rec:     rec,
		friends: friends.NewService(sqlite.NewFriendRepository(device.DB), remote, friends.DefaultLookupConcurrency),
		cfg:     cfg,
	}, nil
}

func (a *app) Close() {
	a.shared.Close()
	a.device.Close()
}

// parseDay accepts YYYY-MM-DD or the words today and yesterday. Dates
// after today are rejected.
func parseDay(arg string) (time.Time, error) {
	now := time.Now()
	switch arg {
	case "", "today":
		return models.StartOfDay(now), nil
	case "yesterday":
		return models.StartOfDay(now).AddDate(0, 0, -1), nil
	}
	day, err := models.ParseDateID(arg, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if day.After(models.StartOfDay(now)) {
		return time.Time{}, fmt.Errorf("%s is in the future", arg)
	}
	return day, nil
}
