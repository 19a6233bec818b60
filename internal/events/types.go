// Package events carries domain notifications to the websocket stream and
// to NATS JetStream.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents different event types
type EventType string

const (
	DrawsImported     EventType = "DRAWS_IMPORTED"
	OptimizerStarted  EventType = "OPTIMIZER_STARTED"
	OptimizerProgress EventType = "OPTIMIZER_PROGRESS"
	OptimizerFinished EventType = "OPTIMIZER_FINISHED"
	PredictionCreated EventType = "PREDICTION_CREATED"
	ReviewCreated     EventType = "REVIEW_CREATED"
	CycleCompleted    EventType = "CYCLE_COMPLETED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// DrawsImportedData contains data for DrawsImported events
type DrawsImportedData struct {
	Lottery string `json:"lottery"`
	Records int    `json:"records"`
	Latest  int64  `json:"latest_period"`
}

// EventType returns the event type for DrawsImportedData
func (d *DrawsImportedData) EventType() EventType {
	return DrawsImported
}

// OptimizerStartedData contains data for OptimizerStarted events
type OptimizerStartedData struct {
	Lottery     string `json:"lottery"`
	Variant     string `json:"variant"`
	Population  int    `json:"population"`
	Generations int    `json:"generations"`
}

// EventType returns the event type for OptimizerStartedData
func (d *OptimizerStartedData) EventType() EventType {
	return OptimizerStarted
}

// OptimizerProgressData contains data for OptimizerProgress events
type OptimizerProgressData struct {
	RunID          string  `json:"run_id"`
	Lottery        string  `json:"lottery"`
	Variant        string  `json:"variant"`
	Generation     int     `json:"generation"`
	Generations    int     `json:"generations"`
	BestFitness    float64 `json:"best_fitness"`
	AverageFitness float64 `json:"average_fitness"`
	GlobalBest     float64 `json:"global_best"`
}

// EventType returns the event type for OptimizerProgressData
func (d *OptimizerProgressData) EventType() EventType {
	return OptimizerProgress
}

// OptimizerFinishedData contains data for OptimizerFinished events
type OptimizerFinishedData struct {
	RunID       string  `json:"run_id"`
	Lottery     string  `json:"lottery"`
	Variant     string  `json:"variant"`
	BestFitness float64 `json:"best_fitness"`
	Completed   bool    `json:"completed"`
	Persisted   bool    `json:"persisted"`
}

// EventType returns the event type for OptimizerFinishedData
func (d *OptimizerFinishedData) EventType() EventType {
	return OptimizerFinished
}

// PredictionCreatedData contains data for PredictionCreated events
type PredictionCreatedData struct {
	Lottery string `json:"lottery"`
	Variant string `json:"variant"`
	Period  int64  `json:"period"`
	Source  string `json:"source"`
}

// EventType returns the event type for PredictionCreatedData
func (d *PredictionCreatedData) EventType() EventType {
	return PredictionCreated
}

// ReviewCreatedData contains data for ReviewCreated events
type ReviewCreatedData struct {
	Lottery  string `json:"lottery"`
	Period   int64  `json:"period"`
	Variants int    `json:"variants"`
}

// EventType returns the event type for ReviewCreatedData
func (d *ReviewCreatedData) EventType() EventType {
	return ReviewCreated
}

// CycleCompletedData contains data for CycleCompleted events
type CycleCompletedData struct {
	Lotteries []string `json:"lotteries"`
	Failures  int      `json:"failures"`
	Duration  string   `json:"duration"`
}

// EventType returns the event type for CycleCompletedData
func (d *CycleCompletedData) EventType() EventType {
	return CycleCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Event is one emitted notification with typed data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		e.Data = nil
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case DrawsImported:
		eventData = &DrawsImportedData{}
	case OptimizerStarted:
		eventData = &OptimizerStartedData{}
	case OptimizerProgress:
		eventData = &OptimizerProgressData{}
	case OptimizerFinished:
		eventData = &OptimizerFinishedData{}
	case PredictionCreated:
		eventData = &PredictionCreatedData{}
	case ReviewCreated:
		eventData = &ReviewCreatedData{}
	case CycleCompleted:
		eventData = &CycleCompletedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		var rawData map[string]interface{}
		if err := json.Unmarshal(aux.Data, &rawData); err != nil {
			return err
		}
		e.Data = &GenericEventData{Type: aux.Type, Data: rawData}
		return nil
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
