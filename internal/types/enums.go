package types

// ModelID identifies a weather model in the provider registry.
type ModelID string

const (
	ModelUKV    ModelID = "ukv"
	ModelECMWF  ModelID = "ecmwf"
	ModelICONEU ModelID = "icon_eu"
	ModelARPEGE ModelID = "arpege"
)

// Exposure classifies the terrain around a site for model weighting.
// Unrecognized values fall through to the balanced default weight set.
type Exposure string

const (
	ExposureUrban    Exposure = "urban"
	ExposureCoastal  Exposure = "coastal"
	ExposureHighland Exposure = "highland"
)

// RunStatus represents the outcome of a daily forecast run.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// Recommendation is the discrete operational decision derived from peak risk.
// Unknown is distinct from Go: it means the risk could not be computed and
// must never be rendered as a clear-to-work signal.
type Recommendation string

const (
	RecommendationGo      Recommendation = "GO"
	RecommendationCaution Recommendation = "CAUTION"
	RecommendationCancel  Recommendation = "CANCEL"
	RecommendationUnknown Recommendation = "UNKNOWN"
)
