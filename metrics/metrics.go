package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Counter of operations processed per evaluator and outcome.
	operationCounter *prometheus.CounterVec
	// Counter of margin-call fills executed by the sweep.
	marginCallCounter prometheus.Counter
	// Counter of trades produced by the matching primitive.
	tradeCounter prometheus.Counter
)

// Register creates and registers the market core instruments with the
// given registerer. Metrics are optional: when Register was never
// called every helper below is a no-op.
func Register(r prometheus.Registerer) error {
	oc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zenith",
			Subsystem: "market",
			Name:      "operations_total",
			Help:      "Number of operations processed per evaluator and outcome",
		},
		[]string{"operation", "outcome"},
	)
	if err := r.Register(oc); err != nil {
		return err
	}
	mc := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zenith",
		Subsystem: "market",
		Name:      "margin_call_fills_total",
		Help:      "Number of margin-call fills executed",
	})
	if err := r.Register(mc); err != nil {
		return err
	}
	tc := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zenith",
		Subsystem: "market",
		Name:      "trades_total",
		Help:      "Number of trades produced by order matching",
	})
	if err := r.Register(tc); err != nil {
		return err
	}
	operationCounter = oc
	marginCallCounter = mc
	tradeCounter = tc
	return nil
}

// OperationAccepted increments the accepted counter for an evaluator.
func OperationAccepted(operation string) {
	if operationCounter == nil {
		return
	}
	operationCounter.WithLabelValues(operation, "accepted").Inc()
}

// OperationRejected increments the rejected counter for an evaluator.
func OperationRejected(operation string) {
	if operationCounter == nil {
		return
	}
	operationCounter.WithLabelValues(operation, "rejected").Inc()
}

// MarginCallFillInc increments the margin-call fill counter.
func MarginCallFillInc() {
	if marginCallCounter == nil {
		return
	}
	marginCallCounter.Inc()
}

// TradeCounterInc increments the trade counter.
func TradeCounterInc() {
	if tradeCounter == nil {
		return
	}
	tradeCounter.Inc()
}
