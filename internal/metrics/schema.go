package metrics

// Kind is the shape of an exported metric.
type Kind int

const (
	KindGauge Kind = iota
	KindHistogram
)

// Exported metric names. These are the contract with scrapers and must not
// change between releases.
const (
	GraphDBSoftwareStacksRecords = "thoth_graphdb_software_stacks_records"
	WorkflowLatencySeconds       = "thoth_workflow_latency_seconds"
	WorkflowLastLatencySeconds   = "thoth_workflow_last_latency_seconds"
	WorkflowQuality              = "thoth_workflow_quality"

	LabelService   = "service"
	LabelStackType = "stack_type"

	jobRunsTotal       = "metrics_exporter_job_runs_total"
	jobDurationSeconds = "metrics_exporter_job_duration_seconds"
	labelJob           = "job"
	labelOutcome       = "outcome"
)

// Definition describes one exported metric.
type Definition struct {
	Name    string
	Help    string
	Kind    Kind
	Labels  []string
	Buckets []float64
}

// Workflows run from seconds up to about an hour.
var latencyBuckets = []float64{5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600}

// Schema lists every domain metric the exporter publishes.
var Schema = []Definition{
	{
		Name:   GraphDBSoftwareStacksRecords,
		Help:   "Number of software stack records of a type in the knowledge graph.",
		Kind:   KindGauge,
		Labels: []string{LabelService, LabelStackType},
	},
	{
		Name:    WorkflowLatencySeconds,
		Help:    "Time between start and completion of workflows.",
		Kind:    KindHistogram,
		Labels:  []string{LabelService},
		Buckets: latencyBuckets,
	},
	{
		Name:   WorkflowLastLatencySeconds,
		Help:   "Duration of the most recently completed workflow.",
		Kind:   KindGauge,
		Labels: []string{LabelService},
	},
	{
		Name:   WorkflowQuality,
		Help:   "Fraction of completed workflows that succeeded.",
		Kind:   KindGauge,
		Labels: []string{LabelService},
	},
}
