package observability

import (
	"context"
	"testing"
	"time"

	"drawpool/config"
	"drawpool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_Disabled(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	// Recording on a disabled provider is a no-op
	mp.RecordAllocation(entities.ParticipationKindPaid, OutcomeSuccess, 2, time.Millisecond)
	mp.RecordDraw(entities.DrawTriggerFill, "completed", time.Millisecond)
	mp.RecordConsistencyReport(&entities.ConsistencyReport{})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_ExporterTypes(t *testing.T) {
	t.Run("none keeps recording disabled", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "none"

		mp := NewMetricsProvider(cfg)
		require.NoError(t, mp.Initialize(context.Background()))
		assert.False(t, mp.isEnabled())
	})

	t.Run("unknown exporter", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "carrier-pigeon"

		mp := NewMetricsProvider(cfg)
		err := mp.Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown exporter type")
	})

	t.Run("console exporter records every instrument", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "console"
		cfg.OTelExportIntervalMillis = 60000

		mp := NewMetricsProvider(cfg)
		require.NoError(t, mp.Initialize(context.Background()))
		require.True(t, mp.isEnabled())

		mp.RecordAllocation(entities.ParticipationKindFree, OutcomeSuccess, 1, time.Millisecond)
		mp.RecordAllocation(entities.ParticipationKindPaid, OutcomeRejected, 3, time.Millisecond)
		mp.RecordDraw(entities.DrawTriggerForced, "completed", 5*time.Millisecond)
		mp.RecordCorrection(entities.CorrectionTargetRound, entities.FieldSoldShares)
		mp.RecordConsistencyReport(&entities.ConsistencyReport{
			Summary: map[entities.IssueSeverity]int{entities.SeverityHigh: 1},
		})
		mp.RecordNATSMessagePublished("draw_completed")

		// A second Initialize is a no-op
		require.NoError(t, mp.Initialize(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, mp.Shutdown(ctx))
	})
}
