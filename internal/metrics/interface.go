package metrics

// Labels is a set of label name/value pairs.
type Labels = map[string]string

// Sink is the write side of the export surface. Gauges keep the last value
// set; histograms accumulate observations.
type Sink interface {
	Set(name string, value float64, labels Labels) error
	Observe(name string, value float64, labels Labels) error
}
