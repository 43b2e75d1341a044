package model

type EnvelopeType string

const (
	EnvelopeTypeBatch EnvelopeType = "rmf_metric_batch"
)

// Envelope is transport-agnostic framing for stream payloads.
type Envelope struct {
	Type          EnvelopeType `json:"type"`
	Sysplex       string       `json:"sysplex"`
	TimestampUnix int64        `json:"timestamp_unix"`
	Payload       any          `json:"payload"`
}
