package application

import (
	"context"
	"time"

	"lending/domain/entities"
	"lending/domain/interfaces"
	"lending/domain/utils"

	log "github.com/sirupsen/logrus"
)

// maxCatchUpDays bounds how many missed days one run back-fills
const maxCatchUpDays = 31

// DailyYieldWorker pays daily yield once a day at a fixed UTC hour and
// back-fills days missed while the service was down
type DailyYieldWorker struct {
	runner DailyYieldRunner
	clock  interfaces.Clock
}

// NewDailyYieldWorker creates a new daily yield worker
func NewDailyYieldWorker(runner DailyYieldRunner, clock interfaces.Clock) *DailyYieldWorker {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &DailyYieldWorker{
		runner: runner,
		clock:  clock,
	}
}

// Start begins the daily yield worker and returns a function that stops it
func (w *DailyYieldWorker) Start(ctx context.Context, runHour int) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Daily yield worker started, runs at %02d:00 UTC", runHour)

		for {
			now := w.clock.Now()
			waitDuration := utils.NextRunAt(now, runHour).Sub(now)
			log.Infof("Daily yield worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Daily yield worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Daily yield worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
				if err := w.RunDue(ctx); err != nil {
					log.WithError(err).Error("Daily yield run failed")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunDue runs every day from the one after the last journaled run through today.
// With no journal it runs today only.
func (w *DailyYieldWorker) RunDue(ctx context.Context) error {
	today := utils.Today(w.clock)

	for _, date := range w.dueDates(ctx, today) {
		result, err := w.runner.RunDailyYield(ctx, date)
		if err != nil {
			return err
		}
		if result.Failed() > 0 {
			log.WithFields(log.Fields{
				"date":   date.String(),
				"failed": result.Failed(),
			}).Warn("Daily yield run finished with failures")
		}
	}
	return nil
}

func (w *DailyYieldWorker) dueDates(ctx context.Context, today entities.Date) []entities.Date {
	latest, err := w.runner.LatestYieldRun(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read yield run journal, running today only")
		return []entities.Date{today}
	}
	if latest == nil || !latest.RunDate.Before(today) {
		return []entities.Date{today}
	}

	start := latest.RunDate.AddDays(1)
	if earliest := today.AddDays(-(maxCatchUpDays - 1)); start.Before(earliest) {
		log.WithFields(log.Fields{
			"lastRun":  latest.RunDate.String(),
			"resuming": earliest.String(),
		}).Warn("Yield run journal is too far behind, skipping oldest missed days")
		start = earliest
	}

	var dates []entities.Date
	for d := start; !d.After(today); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	if len(dates) > 1 {
		log.WithFields(log.Fields{
			"from": start.String(),
			"days": len(dates),
		}).Info("Catching up missed daily yield runs")
	}
	return dates
}
