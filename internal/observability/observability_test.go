package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "mosaic-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "feed.get")
	require.NotNil(t, ctx)
	span.AddAttributes()
	span.SetError(errors.New("boom"))
	span.End()
	assert.Len(t, span.TraceID(), 32)
}

func TestSpan_NilSafe(t *testing.T) {
	var s Span
	s.SetError(errors.New("boom"))
	s.End()
	assert.Empty(t, s.TraceID())
}

func TestRecordSocialAction(t *testing.T) {
	before := testutil.ToFloat64(SocialActionsTotal.WithLabelValues("follow"))
	RecordSocialAction("follow")
	RecordSocialAction("follow")
	assert.Equal(t, before+2, testutil.ToFloat64(SocialActionsTotal.WithLabelValues("follow")))
}

func TestTrackQuery(t *testing.T) {
	done := TrackQuery("list", "posts")
	done()
	assert.Equal(t, 1, testutil.CollectAndCount(DatabaseQueryLatency))
}
