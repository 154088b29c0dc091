// Package recon loads the exports of one period and runs the matcher and the
// consumption calculator over them.
package recon

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/cards"
	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/consumption"
	"go.grg.app/fuelrecon/internal/directory"
	"go.grg.app/fuelrecon/internal/match"
	"go.grg.app/fuelrecon/internal/report"
	"go.grg.app/fuelrecon/internal/sheet"
	"go.grg.app/fuelrecon/internal/telematics"
)

// Inputs are the raw exports. Drains may be nil.
type Inputs struct {
	Cards   io.Reader
	Refuels io.Reader
	Drains  io.Reader
	Roster  io.Reader
}

type Analyzer struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, logger: logger}
}

// Run loads every input and reconciles them. A load that fails outright
// aborts the run; skipped rows are logged and the run continues.
func (a *Analyzer) Run(ctx context.Context, in Inputs) (report.Run, error) {
	var run report.Run
	loc, comma := a.cfg.Location(), a.cfg.Comma()

	rows, err := directory.ReadRoster(in.Roster, a.cfg.Input.Roster, comma, a.logger)
	if err != nil {
		return run, fmt.Errorf("load roster: %w", err)
	}
	dir := directory.Build(rows)
	a.logger.Info("roster loaded", zap.Int("cards", dir.Len()), zap.Int("vehicles", len(dir.Vehicles())))

	purchases, err := cards.Read(in.Cards, cards.Options{
		Comma:        comma,
		Location:     loc,
		FuelKeywords: a.cfg.Input.FuelKeywords,
	})
	if err := a.check("cards", err); err != nil {
		return run, err
	}
	a.logger.Info("card export loaded", zap.Int("purchases", len(purchases)))

	opts := telematics.Options{Sentinel: a.cfg.Input.Sentinel, Location: loc}
	refuels, err := telematics.ReadSheet(in.Refuels, a.cfg.Input.Refuels, comma, opts)
	if err := a.check("refuels", err); err != nil {
		return run, err
	}
	a.logger.Info("refuel sheet loaded", zap.Int("refuels", len(refuels)))

	if in.Drains != nil && a.cfg.Notifications.Drains {
		drains, err := telematics.ReadSheet(in.Drains, a.cfg.Input.Drains, comma, opts)
		if err := a.check("drains", err); err != nil {
			return run, err
		}
		run.Drains = match.Drains(drains, a.cfg.Notifications.DrainThreshold)
		a.logger.Info("drain sheet loaded", zap.Int("drains", len(drains)), zap.Int("reported", len(run.Drains)))
	}

	if err := ctx.Err(); err != nil {
		return run, err
	}
	run.Result = match.NewMatcher(a.cfg.Matching, a.logger).Match(purchases, refuels, dir)
	run.Consumption = consumption.NewCalculator(a.cfg.Consumption).CalculateAll(run.Result.ByVehicle)
	return run, nil
}

func (a *Analyzer) check(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case sheet.Partial(err):
		a.logger.Warn("skipped rows", zap.String("sheet", name), zap.Error(err))
		return nil
	default:
		return fmt.Errorf("load %s: %w", name, err)
	}
}
