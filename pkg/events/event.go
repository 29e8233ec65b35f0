package events

import (
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

// Topics
const (
	TopicLevel = "level"
	TopicRun   = "run"
)

// Event is a clustering progress notification. Level is set on level
// events, Run on run events.
type Event struct {
	Topic string                   `json:"topic"`
	RunID string                   `json:"run_id"`
	Time  time.Time                `json:"time"`
	Level *algorithms.LouvainLevel `json:"level,omitempty"`
	Run   *RunOutcome              `json:"run,omitempty"`
}

// RunOutcome summarizes a finished run.
type RunOutcome struct {
	Status         string  `json:"status"` // "success" or an error kind
	Error          string  `json:"error,omitempty"`
	Levels         int     `json:"levels"`
	BestLevel      int     `json:"best_level"`
	BestModularity float64 `json:"best_modularity"`
}

// Observer returns a level observer that publishes every recorded level to bus.
func Observer(bus *Bus, runID string) func(algorithms.LouvainLevel) {
	return func(level algorithms.LouvainLevel) {
		lv := level
		bus.Publish(Event{
			Topic: TopicLevel,
			RunID: runID,
			Time:  time.Now().UTC(),
			Level: &lv,
		})
	}
}

// PublishRun publishes the outcome of a run. result may be nil when err is set.
func PublishRun(bus *Bus, runID string, result *algorithms.LouvainResult, err error) {
	outcome := &RunOutcome{Status: "success"}
	if err != nil {
		outcome.Status = algorithms.ErrorKind(err)
		outcome.Error = err.Error()
	}
	if result != nil {
		outcome.Levels = len(result.Levels)
		outcome.BestLevel = result.BestLevel
		outcome.BestModularity = result.BestModularity
	}

	bus.Publish(Event{
		Topic: TopicRun,
		RunID: runID,
		Time:  time.Now().UTC(),
		Run:   outcome,
	})
}
