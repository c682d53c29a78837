package scheduler

import (
	"log"
	"time"

	"stock_alert_backend/services"

	"github.com/go-co-op/gocron"
)

// Scheduler manages the scheduled price check job. Exactly one instance
// runs per process; there is no distributed coordination.
type Scheduler struct {
	cron         *gocron.Scheduler
	monitor      *services.PriceMonitor
	interval     time.Duration
	startupDelay time.Duration
}

// NewScheduler creates a new scheduler driving the given monitor.
func NewScheduler(monitor *services.PriceMonitor, interval, startupDelay time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		cron:         gocron.NewScheduler(time.UTC),
		monitor:      monitor,
		interval:     interval,
		startupDelay: startupDelay,
	}
}

// Start starts the periodic price check job. The monitor gates on market
// hours itself, so the job fires unconditionally.
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	if _, err := s.cron.Every(s.interval).Do(s.monitor.RunCycle); err != nil {
		log.Printf("Error scheduling price check job: %v", err)
	}

	s.cron.StartAsync()
	log.Printf("Price monitor scheduled (every %v)", s.interval)

	// Also run once shortly after start if the market is already open
	if s.monitor.MarketOpen() {
		time.AfterFunc(s.startupDelay, s.monitor.RunCycle)
		log.Printf("Market open, first price check in %v", s.startupDelay)
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}
