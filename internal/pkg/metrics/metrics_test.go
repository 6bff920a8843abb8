package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordUnit(t *testing.T) {
	before := testutil.ToFloat64(FetchUnitsTotal.WithLabelValues("metrics-test", "ok"))
	offersBefore := testutil.ToFloat64(OffersTotal.WithLabelValues("metrics-test"))

	RecordUnit("metrics-test", "ok", 3, 1.5)
	RecordUnit("metrics-test", "soft_failure", 0, 0.2)

	assert.Equal(t, before+1, testutil.ToFloat64(FetchUnitsTotal.WithLabelValues("metrics-test", "ok")))
	assert.Equal(t, offersBefore+3, testutil.ToFloat64(OffersTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(FetchUnitsTotal.WithLabelValues("metrics-test", "soft_failure")))
}

func TestRecordComparison(t *testing.T) {
	before := testutil.ToFloat64(ComparisonsTotal.WithLabelValues("empty"))
	RecordComparison("empty")
	assert.Equal(t, before+1, testutil.ToFloat64(ComparisonsTotal.WithLabelValues("empty")))
}
