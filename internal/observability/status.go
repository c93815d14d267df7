package observability

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhasePlanning  Phase = "PLANNING"
	PhaseExecuting Phase = "EXECUTING"
	PhaseUndoing   Phase = "UNDOING"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentPhase  Phase
	ActiveTask    string
	PlansRun      int
	StepsRun      int
	UndosApplied  int
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentPhase:  PhaseIdle,
	LastHeartbeat: time.Now(),
}

// SetPhase updates the global system phase and the task shown on the dashboard.
func SetPhase(phase Phase, task string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentPhase = phase
	globalStatus.ActiveTask = task
}

// CountPlan records a completed plan run and its executed step count.
func CountPlan(steps int) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.PlansRun++
	globalStatus.StepsRun += steps
}

// CountUndo records an applied reversal.
func CountUndo() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.UndosApplied++
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Phase, string, int, int, int, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentPhase, globalStatus.ActiveTask,
		globalStatus.PlansRun, globalStatus.UndosApplied,
		globalStatus.StepsRun, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
