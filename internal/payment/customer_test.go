package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/launchkit/launchkit/internal/model"
)

type fakeAccountStore struct {
	accounts map[string]*model.PaymentAccount // userID:provider → account
	setups   int
	failWith error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]*model.PaymentAccount)}
}

func (s *fakeAccountStore) PaymentAccount(userID, provider string) (*model.PaymentAccount, error) {
	account, ok := s.accounts[userID+":"+provider]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *fakeAccountStore) SetupPaymentAccount(account *model.PaymentAccount) (*model.PaymentAccount, error) {
	s.setups++
	if s.failWith != nil {
		return nil, s.failWith
	}
	key := account.UserID + ":" + account.ProviderID
	if _, exists := s.accounts[key]; exists {
		return nil, ErrAccountExists
	}
	s.accounts[key] = account
	return account, nil
}

func testUser() *model.User {
	return &model.User{ID: "user_1", Email: "dev@example.com", Name: "Dev"}
}

func TestResolveFromMetadata(t *testing.T) {
	store := newFakeAccountStore()
	resolver := newCustomerResolver("stripe", store)

	user := testUser()
	user.Metadata = map[string]string{"stripe_customer_id": "cus_meta"}

	id, err := resolver.resolve(context.Background(), user, func(context.Context, *model.User) (string, error) {
		t.Fatal("create must not run when metadata has the id")
		return "", nil
	})
	if err != nil || id != "cus_meta" {
		t.Errorf("resolve = (%q, %v), want (cus_meta, nil)", id, err)
	}
}

func TestResolveFromStore(t *testing.T) {
	store := newFakeAccountStore()
	store.accounts["user_1:stripe"] = &model.PaymentAccount{UserID: "user_1", ProviderID: "stripe", CustomerID: "cus_stored"}
	resolver := newCustomerResolver("stripe", store)

	id, err := resolver.resolve(context.Background(), testUser(), func(context.Context, *model.User) (string, error) {
		t.Fatal("create must not run when the store has the mapping")
		return "", nil
	})
	if err != nil || id != "cus_stored" {
		t.Errorf("resolve = (%q, %v), want (cus_stored, nil)", id, err)
	}
}

func TestResolveCreatesAndPersists(t *testing.T) {
	store := newFakeAccountStore()
	resolver := newCustomerResolver("polar", store)

	creates := 0
	id, err := resolver.resolve(context.Background(), testUser(), func(context.Context, *model.User) (string, error) {
		creates++
		return "cus_new", nil
	})
	if err != nil || id != "cus_new" {
		t.Fatalf("resolve = (%q, %v), want (cus_new, nil)", id, err)
	}
	if creates != 1 || store.setups != 1 {
		t.Errorf("creates = %d, setups = %d, want 1 and 1", creates, store.setups)
	}

	// Second resolution comes from the store, no vendor call.
	id, err = resolver.resolve(context.Background(), testUser(), func(context.Context, *model.User) (string, error) {
		t.Fatal("second resolve must hit the store")
		return "", nil
	})
	if err != nil || id != "cus_new" {
		t.Errorf("second resolve = (%q, %v), want (cus_new, nil)", id, err)
	}
}

func TestResolveDuplicateRaceKeepsWinner(t *testing.T) {
	// The store already holds the row a concurrent request persisted
	// between our lookup and our insert.
	store := newFakeAccountStore()
	store.accounts["user_1:stripe"] = &model.PaymentAccount{UserID: "user_1", ProviderID: "stripe", CustomerID: "cus_winner"}
	resolver := newCustomerResolver("stripe", store)

	id, err := resolver.persist("user_1", "cus_loser")
	if err != nil {
		t.Fatalf("persist returned error: %v", err)
	}
	if id != "cus_winner" {
		t.Errorf("persist = %q, want the winner's id cus_winner", id)
	}
}

func TestResolvePersistFailureIsNonFatal(t *testing.T) {
	store := newFakeAccountStore()
	store.failWith = errors.New("disk full")
	resolver := newCustomerResolver("stripe", store)

	id, err := resolver.resolve(context.Background(), testUser(), func(context.Context, *model.User) (string, error) {
		return "cus_new", nil
	})
	if err != nil || id != "cus_new" {
		t.Errorf("resolve with failing store = (%q, %v), want (cus_new, nil)", id, err)
	}
}

func TestResolveRejectsMissingUser(t *testing.T) {
	resolver := newCustomerResolver("stripe", newFakeAccountStore())

	_, err := resolver.resolve(context.Background(), nil, nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("nil user: got %v, want ValidationError", err)
	}
}
