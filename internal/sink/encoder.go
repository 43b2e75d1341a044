package sink

import (
	"encoding/json"

	"rmf-simulator/internal/model"
)

type BatchFrame struct {
	BatchID       string        `json:"batch_id"`
	Sysplex       string        `json:"sysplex"`
	TimestampUnix int64         `json:"timestamp_unix"`
	Samples       []SampleFrame `json:"samples"`
}

type SampleFrame struct {
	LPAR            string            `json:"lpar"`
	Metric          string            `json:"metric"`
	Labels          map[string]string `json:"labels"`
	Value           float64           `json:"value"`
	TimestampUnixMs int64             `json:"timestamp_unix_ms"`
}

func NewBatchFrame(b model.MetricBatch) BatchFrame {
	out := BatchFrame{
		BatchID:       b.ID,
		Sysplex:       b.Sysplex,
		TimestampUnix: b.Tick.Unix(),
		Samples:       make([]SampleFrame, 0, len(b.Samples)),
	}
	for _, s := range b.Samples {
		labels := make(map[string]string, len(s.Labels))
		for _, l := range s.Labels {
			labels[l.Name] = l.Value
		}
		out.Samples = append(out.Samples, SampleFrame{
			LPAR:            s.LPAR,
			Metric:          string(s.Metric),
			Labels:          labels,
			Value:           s.Value,
			TimestampUnixMs: s.Timestamp.UnixMilli(),
		})
	}
	return out
}

func NewBatchEnvelope(b model.MetricBatch) model.Envelope {
	return model.Envelope{
		Type:          model.EnvelopeTypeBatch,
		Sysplex:       b.Sysplex,
		TimestampUnix: b.Tick.Unix(),
		Payload:       NewBatchFrame(b),
	}
}

func EncodeEnvelope(e model.Envelope) ([]byte, error) {
	return json.Marshal(e)
}
