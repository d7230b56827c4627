package pipeline

// Stage is a step of an ingestion run.
type Stage int32

const (
	StageIdle Stage = iota
	StageFetching
	StageParsing
	StageNormalizing
	StageConverting
	StageGeocoding
	StageEmitting
	StageDone
	// StageFailed is terminal and only entered from StageFetching or
	// StageParsing. Row-level problems never fail a run.
	StageFailed
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageFetching:    "fetching",
	StageParsing:     "parsing",
	StageNormalizing: "normalizing",
	StageConverting:  "converting",
	StageGeocoding:   "geocoding",
	StageEmitting:    "emitting",
	StageDone:        "done",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
