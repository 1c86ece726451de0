package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot gathers the default registry and flattens it into a
// name->value map suitable for qbst stats's JSON dump. Counters and
// gauges report their scalar value; histograms report sample count
// and sum under "<name>_count" / "<name>_sum", the same suffixes
// Prometheus's text exposition format uses.
func Snapshot() (map[string]float64, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		for _, m := range mf.GetMetric() {
			labelSuffix := ""
			for _, lp := range m.GetLabel() {
				labelSuffix += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[name+labelSuffix] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name+labelSuffix] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				out[name+labelSuffix+"_count"] = float64(h.GetSampleCount())
				out[name+labelSuffix+"_sum"] = h.GetSampleSum()
			}
		}
	}
	return out, nil
}
