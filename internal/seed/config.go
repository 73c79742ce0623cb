// Package seed submits generated admission entries to a running score board
// and checks that they surface in its statistics.
package seed

import "time"

// Config holds the settings of one seeding run.
type Config struct {
	BaseURL    string        // Base URL of the score board service
	NumEntries int           // Number of entries to generate
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for entries to reach the record store
	Poll       time.Duration // Interval between statistics polls while settling
	Schools    []string      // Schools to draw from; DefaultSchools when empty
	Seed       uint64        // Generator seed; zero picks one from the clock
	Verbose    bool          // Log every submission
}

// Report summarises a seeding run.
type Report struct {
	Generated int
	Accepted  int
	Duplicate int
	Failed    int
	Baseline  int
	Observed  int
	Settled   bool
	Popular   string
	Remote    string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
