package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "contact_unlocks_user_request_key"}

	cases := []struct {
		name        string
		err         error
		constraints []string
		want        bool
	}{
		{"any constraint", dup, nil, true},
		{"wrapped", fmt.Errorf("insert unlock: %w", dup), nil, true},
		{"matching constraint", dup, []string{"contact_unlocks_user_request_key"}, true},
		{"other constraint", dup, []string{"processed_payment_events_pkey"}, false},
		{"other code", &pq.Error{Code: "23503"}, nil, false},
		{"plain error", errors.New("boom"), nil, false},
		{"nil", nil, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraints...); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	missingUser := &pq.Error{Code: "23503", Constraint: "contact_unlocks_user_id_fkey"}

	if !IsForeignKeyViolation(fmt.Errorf("insert: %w", missingUser), "contact_unlocks_user_id_fkey") {
		t.Fatal("expected wrapped fk violation to match")
	}
	if IsForeignKeyViolation(missingUser, "contact_unlocks_request_id_fkey") {
		t.Fatal("expected other constraint not to match")
	}
	if IsForeignKeyViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("unique violation is not a fk violation")
	}
}
