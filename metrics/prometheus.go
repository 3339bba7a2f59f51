package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jxlframe"

// PrometheusCollector exposes a Collector's counters to a prometheus registry.
type PrometheusCollector struct {
	c *Collector

	sessions            *prometheus.Desc
	frames              *prometheus.Desc
	enumerationPasses   *prometheus.Desc
	rewinds             *prometheus.Desc
	bufferReallocations *prometheus.Desc
	outputBytes         *prometheus.Desc
	boxesExtracted      *prometheus.Desc
	decodeErrors        *prometheus.Desc
	exportFrames        *prometheus.Desc
	policyFlushes       *prometheus.Desc
	lodeWrites          *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector wraps c. Dimension labels become constant labels.
func NewPrometheusCollector(c *Collector) *PrometheusCollector {
	snap := c.Snapshot()
	labels := prometheus.Labels{"backend": snap.Backend}
	if snap.Policy != "" {
		labels["policy"] = snap.Policy
	}
	if snap.StorageBackend != "" {
		labels["storage_backend"] = snap.StorageBackend
	}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}
	return &PrometheusCollector{
		c:                   c,
		sessions:            desc("sessions_total", "Decode sessions by outcome.", "outcome"),
		frames:              desc("frames_total", "Frames by disposition.", "disposition"),
		enumerationPasses:   desc("enumeration_passes_total", "Frame counting passes."),
		rewinds:             desc("rewinds_total", "Engine rewinds."),
		bufferReallocations: desc("buffer_reallocations_total", "Buffer reallocations."),
		outputBytes:         desc("output_bytes_total", "Decoded pixel bytes."),
		boxesExtracted:      desc("boxes_extracted_total", "Metadata boxes extracted."),
		decodeErrors:        desc("decode_errors_total", "Decode errors by kind.", "kind"),
		exportFrames:        desc("export_frames_total", "Exported frames by stage.", "stage"),
		policyFlushes:       desc("policy_flushes_total", "Export policy flushes."),
		lodeWrites:          desc("lode_writes_total", "Lode write calls by result.", "result"),
	}
}

// Describe implements prometheus.Collector.
func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.sessions
	ch <- p.frames
	ch <- p.enumerationPasses
	ch <- p.rewinds
	ch <- p.bufferReallocations
	ch <- p.outputBytes
	ch <- p.boxesExtracted
	ch <- p.decodeErrors
	ch <- p.exportFrames
	ch <- p.policyFlushes
	ch <- p.lodeWrites
}

// Collect implements prometheus.Collector.
func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.c.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(p.sessions, s.SessionsOpened, "opened")
	counter(p.sessions, s.SessionsFailed, "failed")
	counter(p.frames, s.FramesDecoded, "decoded")
	counter(p.frames, s.FramesSkipped, "skipped")
	counter(p.enumerationPasses, s.EnumerationPasses)
	counter(p.rewinds, s.Rewinds)
	counter(p.bufferReallocations, s.BufferReallocations)
	counter(p.outputBytes, s.OutputBytes)
	counter(p.boxesExtracted, s.BoxesExtracted)

	kinds := make([]string, 0, len(s.DecodeErrorsByKind))
	for k := range s.DecodeErrorsByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		counter(p.decodeErrors, s.DecodeErrorsByKind[k], k)
	}

	counter(p.exportFrames, s.FramesReceived, "received")
	counter(p.exportFrames, s.FramesPersisted, "persisted")
	counter(p.policyFlushes, s.PolicyFlushes)
	counter(p.lodeWrites, s.LodeWriteSuccess, "success")
	counter(p.lodeWrites, s.LodeWriteFailure, "failure")
}

// NewRegistry returns a registry holding c and nothing else.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewPrometheusCollector(c))
	return reg
}

// WriteTextfile writes c in the node-exporter textfile format.
// The file is written atomically.
func WriteTextfile(path string, c *Collector) error {
	return prometheus.WriteToTextfile(path, NewRegistry(c))
}
