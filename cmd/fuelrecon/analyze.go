package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/recon"
	"go.grg.app/fuelrecon/internal/report"
)

// Inputs are the export files shared by analyze and review.
type Inputs struct {
	Cards   string `short:"k" help:"Fuel card export (CSV)" type:"existingfile" required:""`
	Refuels string `short:"f" help:"Telematics refuel sheet (CSV)" type:"existingfile" required:""`
	Drains  string `short:"d" help:"Telematics drain sheet (CSV)" type:"existingfile"`
	Roster  string `short:"r" help:"Card to vehicle roster (CSV)" type:"existingfile" required:""`
}

// run opens the files and reconciles them.
func (in Inputs) run(ctx context.Context, a *app) (report.Run, error) {
	var (
		files []*os.File
		errs  error
	)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	open := func(path string) io.Reader {
		f, err := os.Open(path)
		if err != nil {
			errs = errors.Join(errs, err)
			return nil
		}
		files = append(files, f)
		return f
	}

	ri := recon.Inputs{
		Cards:   open(in.Cards),
		Refuels: open(in.Refuels),
		Roster:  open(in.Roster),
	}
	if in.Drains != "" {
		ri.Drains = open(in.Drains)
	}
	if errs != nil {
		return report.Run{}, errs
	}
	a.logger.Debug("inputs opened", zap.Int("files", len(files)))
	return recon.New(a.cfg, a.logger).Run(ctx, ri)
}

type Analyze struct {
	Inputs `embed:""`

	Format string `short:"o" help:"Report format" enum:"json,csv,text" default:"text"`
	Out    string `help:"Write the report to this file instead of stdout" type:"path"`
}

func (c Analyze) Run(ctx context.Context, a *app) error {
	run, err := c.run(ctx, a)
	if err != nil {
		return err
	}
	r := report.Build(run, time.Now())
	a.logger.Info("reconciled",
		zap.String("run_id", r.RunID),
		zap.Int("purchases", r.Summary.Purchases),
		zap.Int("matched", r.Summary.Matched),
		zap.Int("notifications", r.Summary.Notifications),
		zap.Int("drains", len(r.Drains)))

	var w io.Writer = os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return report.Write(w, r, report.Format(c.Format))
}
