// Package tui provides the Bubble Tea deployment monitor shown while the
// Hopsworks chart comes up.
package tui

// Status is one observation of the deployment.
type Status struct {
	CompleteJobs int
	TotalJobs    int
	// CoreRunning reports whether the hopsworks-instance pod is Running.
	CoreRunning bool
	Pods        int
}

// Ready reports whether every job finished and the core pod runs.
func (s Status) Ready() bool {
	return s.CoreRunning && s.TotalJobs > 0 && s.CompleteJobs == s.TotalJobs
}

// Progress returns the share of completed jobs in [0,1].
func (s Status) Progress() float64 {
	if s.TotalJobs == 0 {
		return 0
	}
	return float64(s.CompleteJobs) / float64(s.TotalJobs)
}

// StatusMsg carries the result of a status poll.
type StatusMsg struct {
	Status Status
	Err    error
}

// TickMsg is sent every second to refresh the display.
type TickMsg struct{}

// pollMsg asks the model to fetch a new status.
type pollMsg struct{}
