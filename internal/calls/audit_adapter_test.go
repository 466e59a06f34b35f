package calls

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"admissions-crm/internal/audit"
	"admissions-crm/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditAdapter_RecordsLifecycle(t *testing.T) {
	d := &fakeDialer{polls: []pollStep{{res: telephony.PollActive{CallID: "c-9", Status: "Answered"}}}}
	tr, fc, _ := newTestTracker(t, d)
	repo := audit.NewMemoryRepo()
	tr.opts.Observer = AuditAdapter{Audit: audit.NewService(repo), Logger: discardLogger()}

	_, err := tr.StartCallProcess(context.Background(), testLead)
	require.NoError(t, err)
	fc.Advance(7 * time.Second)
	_, err = tr.HangupCall(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []audit.EventType{
		audit.EventTypeCallStarted,
		audit.EventTypeCallConnected,
		audit.EventTypeCallEnded,
	}, repo.Types())

	evs := repo.Events()
	ended := evs[len(evs)-1]
	assert.Equal(t, "ws-1", ended.WorkspaceID)
	assert.Equal(t, "agent-1", ended.ActorUserID)
	assert.Equal(t, "c-9", ended.CallID)
	assert.Equal(t, "counsellor", ended.ActorRole)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(ended.Metadata), &meta))
	assert.Equal(t, "hanging_up", meta["state"])
	assert.Equal(t, float64(2), meta["duration_seconds"])
}

func TestAuditAdapter_FailureThenDismissLogsOnce(t *testing.T) {
	d := &fakeDialer{originate: func(telephony.OriginateRequest) (telephony.OriginationResult, error) {
		return telephony.OriginationResult{}, &telephony.APIError{StatusCode: 400, Message: "Invalid number"}
	}}
	tr, _, _ := newTestTracker(t, d)
	repo := audit.NewMemoryRepo()
	tr.opts.Observer = AuditAdapter{Audit: audit.NewService(repo)}

	_, err := tr.StartCallProcess(context.Background(), testLead)
	require.Error(t, err)
	tr.Cleanup()

	assert.Equal(t, []audit.EventType{audit.EventTypeCallStarted, audit.EventTypeCallFailed}, repo.Types())
	failed := repo.Events()[1]
	assert.Contains(t, failed.Metadata, "Invalid number")
}

func TestAuditAdapter_NilServiceIsIgnored(t *testing.T) {
	AuditAdapter{}.OnCallEvent(context.Background(), Event{Type: EventConnected})
}

func TestAuditAdapter_ResetFromConnectedIsClosed(t *testing.T) {
	typ, msg, ok := auditType(Event{Type: EventReset, Session: Snapshot{State: StateConnected}})
	assert.True(t, ok)
	assert.Equal(t, audit.EventTypeCallEnded, typ)
	assert.Equal(t, "call session closed", msg)

	_, _, ok = auditType(Event{Type: EventStatus})
	assert.False(t, ok)
}
