package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{SubscriptionStatusActive, false},
		{SubscriptionStatusTrialing, false},
		{SubscriptionStatusPastDue, false},
		{SubscriptionStatusUnpaid, false},
		{SubscriptionStatusIncomplete, false},
		{SubscriptionStatusCanceled, true},
		{SubscriptionStatusIncompleteExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			sub := &Subscription{Status: tt.status}
			assert.Equal(t, tt.terminal, sub.IsTerminal())
		})
	}
}
