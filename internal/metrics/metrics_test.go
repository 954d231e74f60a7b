package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTurn(t *testing.T) {
	initial := testutil.ToFloat64(turnsTotal.WithLabelValues("PostText", "ElicitSlot"))
	RecordTurn("PostText", "ElicitSlot")
	require.Equal(t, initial+1, testutil.ToFloat64(turnsTotal.WithLabelValues("PostText", "ElicitSlot")))

	initial = testutil.ToFloat64(turnsTotal.WithLabelValues("DeleteSession", "none"))
	RecordTurn("DeleteSession", "")
	require.Equal(t, initial+1, testutil.ToFloat64(turnsTotal.WithLabelValues("DeleteSession", "none")))
}

func TestRecordContextsExpired(t *testing.T) {
	initial := testutil.ToFloat64(contextsExpiredTotal)
	RecordContextsExpired(0)
	RecordContextsExpired(-1)
	require.Equal(t, initial, testutil.ToFloat64(contextsExpiredTotal))
	RecordContextsExpired(2)
	require.Equal(t, initial+2, testutil.ToFloat64(contextsExpiredTotal))
}

func TestRecordFulfillment_NormalizesOutcome(t *testing.T) {
	initial := testutil.ToFloat64(fulfillmentTotal.WithLabelValues("unknown"))
	RecordFulfillment("Timeout")
	require.Equal(t, initial+1, testutil.ToFloat64(fulfillmentTotal.WithLabelValues("unknown")))
}

func TestRecordErrorAndCatalogLoad(t *testing.T) {
	initial := testutil.ToFloat64(errorsTotal.WithLabelValues("GetSession", "NotFoundException"))
	RecordError("GetSession", "NotFoundException")
	require.Equal(t, initial+1, testutil.ToFloat64(errorsTotal.WithLabelValues("GetSession", "NotFoundException")))

	initial = testutil.ToFloat64(catalogLoadsTotal.WithLabelValues("failure"))
	RecordCatalogLoad(false)
	require.Equal(t, initial+1, testutil.ToFloat64(catalogLoadsTotal.WithLabelValues("failure")))
}
