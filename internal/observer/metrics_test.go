package observer

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeErrorType(t *testing.T) {
	tests := map[string]string{
		"":                                  "none",
		"configuration error: no funnel":    "configuration",
		"database error: connection reset":  "database",
		"validation failed: step":           "validation",
		"resource not found":                "not_found",
		"dispatch failed: status 500":       "provider",
		"nats communication error":          "nats",
		"context deadline exceeded":         "timeout",
		"json: cannot unmarshal string":     "unmarshal",
		"recovered panic in handler":        "panic",
		"something else entirely happened":  "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeErrorType(in), in)
	}
}

func TestCountersRespectEnabledFlag(t *testing.T) {
	InitMetrics(false)
	before := testutil.ToFloat64(dispatchAttemptsTotal.WithLabelValues("c-metrics", "sent"))
	IncDispatchAttempt("c-metrics", "sent")
	assert.Equal(t, before, testutil.ToFloat64(dispatchAttemptsTotal.WithLabelValues("c-metrics", "sent")))

	InitMetrics(true)
	defer InitMetrics(false)
	IncDispatchAttempt("c-metrics", "sent")
	assert.Equal(t, before+1, testutil.ToFloat64(dispatchAttemptsTotal.WithLabelValues("c-metrics", "sent")))

	ObserveDbOperationDuration("Create", "message", "", time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(DatabaseOperationDurationSeconds))
}
