package store

import (
	"testing"
	"time"

	"github.com/cvconnect/interviewsync/internal/model"
)

func pendingFor(proposed model.InterviewStatus) *model.PendingUpdate {
	return &model.PendingUpdate{
		EntityID:       "iv-1",
		ProposedStatus: proposed,
		CreatedAt:      time.Now(),
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		server  model.InterviewStatus
		pending *model.PendingUpdate
		want    Decision
	}{
		{
			name:    "no pending adopts server",
			server:  model.StatusCancelled,
			pending: nil,
			want:    AdoptServer,
		},
		{
			name:    "server still pre-transition keeps local",
			server:  model.StatusScheduled,
			pending: pendingFor(model.StatusAccepted),
			want:    KeepLocal,
		},
		{
			name:    "server still pre-transition keeps local decline",
			server:  model.StatusScheduled,
			pending: pendingFor(model.StatusDeclined),
			want:    KeepLocal,
		},
		{
			name:    "server confirmed proposal adopts server",
			server:  model.StatusAccepted,
			pending: pendingFor(model.StatusAccepted),
			want:    AdoptServer,
		},
		{
			name:    "server advanced past proposal adopts server",
			server:  model.StatusConfirmed,
			pending: pendingFor(model.StatusAccepted),
			want:    AdoptServer,
		},
		{
			name:    "server contradicts with other branch adopts server",
			server:  model.StatusDeclined,
			pending: pendingFor(model.StatusAccepted),
			want:    AdoptServer,
		},
		{
			name:    "server cancelled adopts server",
			server:  model.StatusCancelled,
			pending: pendingFor(model.StatusAccepted),
			want:    AdoptServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconcile(tt.server, tt.pending); got != tt.want {
				t.Errorf("Reconcile(%s, pending=%v) = %v, want %v",
					tt.server, tt.pending, got, tt.want)
			}
		})
	}
}
