package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for document review and registration progression.
type Metrics struct {
	DocumentsUploaded    *prometheus.CounterVec
	DocumentReviews      *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	Evaluations          *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	ActionLogFailures    prometheus.Counter
	BlobDeleteFailures   prometheus.Counter
	EvaluateDuration     prometheus.Histogram
}

// New registers the enrollment metrics on the default registry. Call once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsUploaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_documents_uploaded_total",
			Help: "Documents uploaded, labelled by whether an existing document was replaced",
		}, []string{"replaced"}),
		DocumentReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_document_reviews_total",
			Help: "Review decisions recorded on documents",
		}, []string{"tier", "decision"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_registration_transitions_total",
			Help: "Registration status transitions",
		}, []string{"from", "to"}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_progression_evaluations_total",
			Help: "Progression evaluations by outcome reason",
		}, []string{"reason"}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_notification_failures_total",
			Help: "Notifications that could not be handed to the sink",
		}, []string{"kind"}),
		ActionLogFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_action_log_failures_total",
			Help: "Document action log entries that failed to persist",
		}),
		BlobDeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dossier_blob_delete_failures_total",
			Help: "Blob deletions that failed during replace or delete",
		}),
		EvaluateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dossier_progression_evaluate_duration_seconds",
			Help:    "Duration of progression evaluations including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementUpload(replaced bool) {
	label := "false"
	if replaced {
		label = "true"
	}
	m.DocumentsUploaded.WithLabelValues(label).Inc()
}

// IncrementReview records a review decision. tier is "partner" or "discovery".
func (m *Metrics) IncrementReview(tier, decision string) {
	m.DocumentReviews.WithLabelValues(tier, decision).Inc()
}

func (m *Metrics) IncrementTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementEvaluation(reason string) {
	m.Evaluations.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementNotificationFailure(kind string) {
	m.NotificationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementActionLogFailure() {
	m.ActionLogFailures.Inc()
}

func (m *Metrics) IncrementBlobDeleteFailure() {
	m.BlobDeleteFailures.Inc()
}

// ObserveEvaluate records the duration of an evaluation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveEvaluate(start time.Time) {
	m.EvaluateDuration.Observe(time.Since(start).Seconds())
}
