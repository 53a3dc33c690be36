package unlock

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/domain/user"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// ledger is an in-memory unlock ledger and balance store guarded by one lock,
// mirroring the single database transaction of the real repository.
type ledger struct {
	mu       sync.Mutex
	unlocks  map[[2]uuid.UUID]ContactUnlock
	balances map[uuid.UUID]int
	banned   map[uuid.UUID]bool
	missing  map[uuid.UUID]bool
	debits   int
	err      error
}

func newLedger() *ledger {
	return &ledger{
		unlocks:  map[[2]uuid.UUID]ContactUnlock{},
		balances: map[uuid.UUID]int{},
		banned:   map[uuid.UUID]bool{},
		missing:  map[uuid.UUID]bool{},
	}
}

func (l *ledger) HasUnlock(_ context.Context, userID, requestID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	_, ok := l.unlocks[[2]uuid.UUID{userID, requestID}]
	return ok, nil
}

func (l *ledger) UnlockWithDebit(_ context.Context, userID, requestID uuid.UUID, cost int) (*ContactUnlock, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := [2]uuid.UUID{userID, requestID}
	if _, ok := l.unlocks[key]; ok {
		return nil, 0, ErrAlreadyUnlocked
	}
	if l.balances[userID] < cost {
		return nil, 0, coin.ErrInsufficientBalance
	}
	l.balances[userID] -= cost
	l.debits++
	u := ContactUnlock{ID: uuid.New(), UserID: userID, RequestID: requestID, CostPaid: cost, UnlockedAt: testNow}
	l.unlocks[key] = u
	return &u, l.balances[userID], nil
}

func (l *ledger) ListByUser(_ context.Context, userID uuid.UUID, _ coin.Pagination) ([]UnlockedRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []UnlockedRequest{}
	for key, u := range l.unlocks {
		if key[0] == userID {
			out = append(out, UnlockedRequest{RequestID: u.RequestID, CostPaid: u.CostPaid})
		}
	}
	return out, nil
}

func (l *ledger) GetBalance(_ context.Context, userID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *ledger) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.missing[id] {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: id, Role: user.RoleTutor, CoinBalance: l.balances[id], IsBanned: l.banned[id]}, nil
}

func (l *ledger) balance(id uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[id]
}

type requestMap map[uuid.UUID]*tutoring.Request

func (m requestMap) GetByID(_ context.Context, id uuid.UUID) (*tutoring.Request, error) {
	r, ok := m[id]
	if !ok {
		return nil, tutoring.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

// flexibleRequest costs the base 5 coins.
func flexibleRequest(owner uuid.UUID) *tutoring.Request {
	return &tutoring.Request{
		ID:           uuid.New(),
		StudentID:    owner,
		Title:        "Need help with essays",
		Status:       tutoring.StatusOpen,
		Urgency:      tutoring.UrgencyFlexible,
		PriceAmount:  decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Subjects:     pq.StringArray{"history"},
		ViewCount:    sql.NullInt64{Int64: 2, Valid: true},
		CreatedAt:    sql.NullTime{Time: testNow.AddDate(0, 0, -10), Valid: true},
		ContactName:  sql.NullString{String: "Sam Student", Valid: true},
		ContactEmail: sql.NullString{String: "sam@example.com", Valid: true},
		ContactPhone: sql.NullString{String: "+15550001234", Valid: true},
	}
}

func newGate(l *ledger, reqs ...*tutoring.Request) *Gate {
	m := requestMap{}
	for _, r := range reqs {
		m[r.ID] = r
	}
	return NewGate(l, m, l, l).WithClock(func() time.Time { return testNow })
}

func TestUnlockWithInsufficientBalance(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	tutor := uuid.New()
	l.balances[tutor] = 2

	_, err := newGate(l, req).Unlock(context.Background(), tutor, req.ID, 0)

	if !errors.Is(err, coin.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	var ibe *InsufficientBalanceError
	if !errors.As(err, &ibe) || ibe.Required != 5 || ibe.Balance != 2 {
		t.Fatalf("unexpected error detail %#v", err)
	}
	if l.balance(tutor) != 2 {
		t.Fatalf("balance changed to %d", l.balance(tutor))
	}
	if len(l.unlocks) != 0 {
		t.Fatal("unlock row created despite insufficient balance")
	}
}

func TestSecondUnlockDoesNotCharge(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	tutor := uuid.New()
	l.balances[tutor] = 20
	gate := newGate(l, req)

	first, err := gate.Unlock(context.Background(), tutor, req.ID, 0)
	if err != nil {
		t.Fatalf("first unlock failed: %v", err)
	}
	if first.CostPaid != 5 || first.ContactWithheld || first.Contact.Email != "sam@example.com" {
		t.Fatalf("unexpected first reveal %#v", first)
	}

	second, err := gate.Unlock(context.Background(), tutor, req.ID, 0)
	if err != nil {
		t.Fatalf("second unlock failed: %v", err)
	}
	if !second.AlreadyUnlocked || second.CostPaid != 0 || second.Contact.Phone != "+15550001234" {
		t.Fatalf("unexpected second reveal %#v", second)
	}
	if l.balance(tutor) != 15 || l.debits != 1 {
		t.Fatalf("expected one debit leaving 15, got balance %d after %d debits", l.balance(tutor), l.debits)
	}
}

func TestConcurrentUnlocksChargeOnce(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	tutor := uuid.New()
	l.balances[tutor] = 100
	gate := newGate(l, req)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := gate.Unlock(context.Background(), tutor, req.ID, 0)
			if err != nil {
				t.Errorf("unlock failed: %v", err)
				return
			}
			if r.ContactWithheld {
				t.Error("contact withheld after unlock")
			}
		}()
	}
	wg.Wait()

	if l.debits != 1 || l.balance(tutor) != 95 {
		t.Fatalf("expected a single debit, got %d debits and balance %d", l.debits, l.balance(tutor))
	}
}

func TestRevealAnonymous(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())

	r, err := newGate(l, req).Reveal(context.Background(), uuid.Nil, req.ID)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if !r.ContactWithheld || r.Price != nil || r.Balance != nil {
		t.Fatalf("anonymous reveal leaked data %#v", r)
	}
	if r.Contact.Email == "sam@example.com" || r.Contact.Name != "Sam" {
		t.Fatalf("contact not redacted %#v", r.Contact)
	}
}

func TestRevealQuotesPriceBeforeUnlock(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	req.Urgency = tutoring.UrgencyUrgent
	tutor := uuid.New()
	l.balances[tutor] = 3

	r, err := newGate(l, req).Reveal(context.Background(), tutor, req.ID)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if !r.ContactWithheld || r.Price == nil || r.Price.Cost != 10 {
		t.Fatalf("expected withheld contact priced at 10, got %#v", r)
	}
	if r.Balance == nil || *r.Balance != 3 {
		t.Fatalf("expected balance 3, got %v", r.Balance)
	}
	if r.Contact.Phone != "*********34" {
		t.Fatalf("phone not masked: %q", r.Contact.Phone)
	}
}

func TestOwnerSeesContactForFree(t *testing.T) {
	l := newLedger()
	owner := uuid.New()
	req := flexibleRequest(owner)
	gate := newGate(l, req)

	r, err := gate.Reveal(context.Background(), owner, req.ID)
	if err != nil || r.ContactWithheld || !r.IsOwner {
		t.Fatalf("owner reveal: %#v %v", r, err)
	}
	r, err = gate.Unlock(context.Background(), owner, req.ID, 0)
	if err != nil || r.ContactWithheld || r.CostPaid != 0 {
		t.Fatalf("owner unlock: %#v %v", r, err)
	}
	if l.debits != 0 {
		t.Fatal("owner was charged")
	}
}

func TestUnlockRejections(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	closed := flexibleRequest(uuid.New())
	closed.Status = tutoring.StatusClosed
	tutor := uuid.New()
	l.balances[tutor] = 50
	gate := newGate(l, req, closed)

	if _, err := gate.Unlock(context.Background(), uuid.Nil, req.ID, 0); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if _, err := gate.Unlock(context.Background(), tutor, uuid.New(), 0); !errors.Is(err, tutoring.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if _, err := gate.Unlock(context.Background(), tutor, closed.ID, 0); !errors.Is(err, tutoring.ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed, got %v", err)
	}
	if _, err := gate.Unlock(context.Background(), tutor, req.ID, 4); !errors.Is(err, ErrPriceChanged) {
		t.Fatalf("expected ErrPriceChanged, got %v", err)
	}
	if l.balance(tutor) != 50 {
		t.Fatalf("rejected unlocks changed balance to %d", l.balance(tutor))
	}
	if _, err := gate.Unlock(context.Background(), tutor, req.ID, 5); err != nil {
		t.Fatalf("unlock at agreed price failed: %v", err)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	l := newLedger()
	l.err = coin.ErrStoreUnavailable
	req := flexibleRequest(uuid.New())

	if _, err := newGate(l, req).Unlock(context.Background(), uuid.New(), req.ID, 0); !errors.Is(err, coin.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestUnlockChecksBuyerAccount(t *testing.T) {
	l := newLedger()
	req := flexibleRequest(uuid.New())
	gate := newGate(l, req)

	ghost := uuid.New()
	l.missing[ghost] = true
	if _, err := gate.Unlock(context.Background(), ghost, req.ID, 0); !errors.Is(err, coin.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	banned := uuid.New()
	l.balances[banned] = 50
	l.banned[banned] = true
	if _, err := gate.Unlock(context.Background(), banned, req.ID, 0); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected ErrAccountBanned, got %v", err)
	}
	if l.balance(banned) != 50 || l.debits != 0 {
		t.Fatal("rejected account was charged")
	}
}
