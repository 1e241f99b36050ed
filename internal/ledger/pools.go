package ledger

import (
	"fmt"
	"math/rand/v2"
)

// Customer is a stable customer identity for the whole run.
type Customer struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Store is a stable store identity for the whole run.
type Store struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

var zones = []string{"North", "South", "Central"}

func newCustomers(n int) []Customer {
	out := make([]Customer, n)
	for i := range out {
		out[i] = Customer{
			Key:  fmt.Sprintf("CLT-%03d", i+1),
			Name: fmt.Sprintf("Customer %d", i+1),
		}
	}
	return out
}

// newStores draws each store's zone from rng, so it must run before any
// per-day sampling to keep the stream order fixed.
func newStores(n int, rng *rand.Rand) []Store {
	out := make([]Store, n)
	for i := range out {
		out[i] = Store{
			Key:         fmt.Sprintf("STR-%02d", i+1),
			Description: fmt.Sprintf("Store %d - Zone %s", i+1, zones[rng.IntN(len(zones))]),
		}
	}
	return out
}
