package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/directory"
	"go.grg.app/fuelrecon/internal/prompt"
)

type Roster struct {
	From string `help:"Existing roster to extend" type:"existingfile"`
	Out  string `help:"Roster file to write" type:"path" required:""`
}

// Run reads card:vehicle entries until an empty line and writes the result.
// A card entered again moves to the new vehicle.
func (c Roster) Run(ctx context.Context, a *app) error {
	var rows []directory.RosterRow
	if c.From != "" {
		f, err := os.Open(c.From)
		if err != nil {
			return err
		}
		rows, err = directory.ReadRoster(f, a.cfg.Input.Roster, a.cfg.Comma(), a.logger)
		f.Close()
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
	}

	for ctx.Err() == nil {
		s, err := prompt.AskText(fmt.Sprintf("card:vehicle (%d entered, empty to finish)", len(rows)), "", "0249:497", nil)
		if err != nil {
			return err
		}
		if s == "" {
			break
		}
		card, vehicle, err := directory.ParseAssignment(s)
		if err != nil {
			a.logger.Warn("entry ignored", zap.String("entry", s), zap.Error(err))
			continue
		}
		rows = append(rows, directory.RosterRow{Vehicle: vehicle, Cards: []string{card}})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := directory.Build(rows)
	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}
	if err := directory.WriteRoster(f, dir, a.cfg.Input.Roster, a.cfg.Comma()); err != nil {
		f.Close()
		return err
	}
	a.logger.Info("roster written", zap.String("path", c.Out), zap.Int("cards", dir.Len()))
	return f.Close()
}
