package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "onekyc/pkg/domain"
	audit "onekyc/pkg/platform/audit"
	"onekyc/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

func validEvent() audit.ComplianceEvent {
	return audit.ComplianceEvent{
		CaseID:      id.NewCaseID(),
		ApplicantID: id.NewApplicantID(),
		Action:      audit.ActionVerified,
		Decision:    "VERIFIED",
		UKN:         "KYC-0A1B-2C3D-4E5F",
		ActorID:     "system",
	}
}

func TestPublisher_EmitPersistsSealedEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pub := New(store, WithClock(func() time.Time { return fixed }))

	ev := validEvent()
	require.NoError(t, pub.Emit(context.Background(), ev))

	events, err := store.ListByCase(context.Background(), ev.CaseID.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.ActionVerified), events[0].Action)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, events[0].ComputeHash(), events[0].Hash)
	assert.Contains(t, events[0].Hash, "sha256:")
}

func TestPublisher_RejectsIncompleteEvents(t *testing.T) {
	pub := New(memory.NewInMemoryStore())

	noCase := validEvent()
	noCase.CaseID = id.CaseID{}
	assert.ErrorIs(t, pub.Emit(context.Background(), noCase), audit.ErrIncompleteEvent)

	noApplicant := validEvent()
	noApplicant.ApplicantID = id.ApplicantID{}
	assert.ErrorIs(t, pub.Emit(context.Background(), noApplicant), audit.ErrIncompleteEvent)

	noAction := validEvent()
	noAction.Action = ""
	assert.ErrorIs(t, pub.Emit(context.Background(), noAction), audit.ErrIncompleteEvent)
}

// Justification: compliance emission is fail-closed, so a store failure must
// surface to the caller and be counted.
func TestPublisher_FailClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	pub := New(failingStore{}, WithMetrics(m))

	err := pub.Emit(context.Background(), validEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance audit persistence failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	assert.Equal(t, 0, testutil.CollectAndCount(m.EventsEmitted))
}

func TestPublisher_CountsByAction(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(memory.NewInMemoryStore(), WithMetrics(m))

	require.NoError(t, pub.Emit(context.Background(), validEvent()))
	require.NoError(t, pub.Emit(context.Background(), validEvent()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsEmitted.WithLabelValues(string(audit.ActionVerified))))
}

func TestEvent_HashDetectsTampering(t *testing.T) {
	ev := validEvent()
	ev.Timestamp = time.Now()
	sealed := ev.ToEvent()

	tampered := sealed
	tampered.Decision = "REJECTED"
	assert.NotEqual(t, sealed.Hash, tampered.ComputeHash())
}
