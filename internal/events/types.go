package events

// Event type constants for kelindar/event.
const (
	TypeTrialStarted uint32 = iota + 1
	TypeTrialCompleted
	TypeTrialSkipped
	TypeTierCompleted
	TypeSearchFinished
	TypeProgressSample
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// TrialStartedEvent is published before a trial runs. It carries what the
// console header shows.
type TrialStartedEvent struct {
	RunID      string  `json:"run_id"`
	Index      int     `json:"index"` // 1-based
	Total      int     `json:"total"`
	Encoder    string  `json:"encoder"`
	Resolution string  `json:"resolution"`
	FPS        int     `json:"fps"`
	Bitrate    int     `json:"bitrate"`
	Settings   string  `json:"settings"`
	ETASeconds float64 `json:"eta_seconds"` // negative until the first trial finished
	DecodeRun  bool    `json:"decode_run"`
	IsDecoding bool    `json:"is_decoding"`
}

// Type returns the event type identifier for TrialStartedEvent.
func (e TrialStartedEvent) Type() uint32 { return TypeTrialStarted }

// TrialCompletedEvent is published once a trial and its quality check finished.
type TrialCompletedEvent struct {
	RunID         string  `json:"run_id"`
	Index         int     `json:"index"`
	Encoder       string  `json:"encoder"`
	Bitrate       int     `json:"bitrate"`
	Settings      string  `json:"settings"`
	WasOverloaded bool    `json:"was_overloaded"`
	AvgFPS        int     `json:"avg_fps"`
	OnePercentLow int     `json:"one_percent_low"`
	Ninetieth     int     `json:"ninetieth"`
	VmafScore     float64 `json:"vmaf_score"`
	HasScore      bool    `json:"has_score"`
	Seconds       float64 `json:"seconds"`
}

// Type returns the event type identifier for TrialCompletedEvent.
func (e TrialCompletedEvent) Type() uint32 { return TypeTrialCompleted }

// TrialSkippedEvent is published when a trial is predicted to repeat a
// known score and is not run.
type TrialSkippedEvent struct {
	RunID    string `json:"run_id"`
	Index    int    `json:"index"`
	Bitrate  int    `json:"bitrate"`
	Settings string `json:"settings"`
}

// Type returns the event type identifier for TrialSkippedEvent.
func (e TrialSkippedEvent) Type() uint32 { return TypeTrialSkipped }

// TierCompletedEvent is published at every bitrate tier boundary.
type TierCompletedEvent struct {
	RunID        string  `json:"run_id"`
	Bitrate      int     `json:"bitrate"`
	Kept         int     `json:"kept"`
	Duplicates   int     `json:"duplicates"`
	IgnoreFactor float64 `json:"ignore_factor"`
	TargetFound  bool    `json:"target_found"`
}

// Type returns the event type identifier for TierCompletedEvent.
func (e TierCompletedEvent) Type() uint32 { return TypeTierCompleted }

// SearchFinishedEvent is published when a run ends, cleanly or not.
type SearchFinishedEvent struct {
	RunID      string  `json:"run_id"`
	Results    int     `json:"results"`
	Duplicates int     `json:"duplicates"`
	Seconds    float64 `json:"seconds"`
	Cancelled  bool    `json:"cancelled"`
	Error      string  `json:"error,omitempty"`
}

// Type returns the event type identifier for SearchFinishedEvent.
func (e SearchFinishedEvent) Type() uint32 { return TypeSearchFinished }

// ProgressSampleEvent carries one evaluator reading of a running trial.
type ProgressSampleEvent struct {
	Encoder string `json:"encoder"`
	Frame   uint64 `json:"frame"`
	FPS     int    `json:"fps"`
}

// Type returns the event type identifier for ProgressSampleEvent.
func (e ProgressSampleEvent) Type() uint32 { return TypeProgressSample }
