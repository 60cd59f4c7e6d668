package seed

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docmesh/docmesh/internal/document"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	g1 := NewGenerator(42)
	g2 := NewGenerator(42)

	for i := 1; i <= 5; i++ {
		if diff := cmp.Diff(g1.Customer(i), g2.Customer(i)); diff != "" {
			t.Fatalf("customer %d differs (-first +second):\n%s", i, diff)
		}
		if diff := cmp.Diff(g1.Order(i, 5), g2.Order(i, 5)); diff != "" {
			t.Fatalf("order %d differs (-first +second):\n%s", i, diff)
		}
		if diff := cmp.Diff(g1.Book(i), g2.Book(i)); diff != "" {
			t.Fatalf("book %d differs (-first +second):\n%s", i, diff)
		}
	}
}

func TestGeneratorDocumentShapes(t *testing.T) {
	g := NewGenerator(7)

	customer := g.Customer(3)
	if diff := cmp.Diff([]string{"_id", "name", "email", "age", "address", "tier", "active", "tags", "signed_up_at"}, customer.Keys()); diff != "" {
		t.Fatalf("customer keys (-want +got):\n%s", diff)
	}
	if id, _ := customer.Get("_id"); id != "cust-0003" {
		t.Fatalf("customer _id = %v", id)
	}
	age, _ := customer.Get("age")
	if n, ok := age.(int64); !ok || n < 18 || n > 75 {
		t.Fatalf("age = %#v", age)
	}

	order := g.Order(12, 3)
	if id, _ := order.Get("_id"); id != "ord-000012" {
		t.Fatalf("order _id = %v", id)
	}
	customerID, _ := order.Get("customer_id")
	if ref, ok := customerID.(string); !ok || !strings.HasPrefix(ref, "cust-000") {
		t.Fatalf("customer_id = %#v", customerID)
	}
	items, _ := order.Get("items")
	list, ok := items.([]any)
	if !ok || len(list) == 0 {
		t.Fatalf("items = %#v", items)
	}
	if _, ok := list[0].(document.Document); !ok {
		t.Fatalf("item type = %T", list[0])
	}

	book := g.Book(1)
	if document.TypeTag(mustGet(t, book, "genres")) != "array" {
		t.Fatalf("genres = %#v", mustGet(t, book, "genres"))
	}
	if document.TypeTag(mustGet(t, book, "rating")) != "float" {
		t.Fatalf("rating = %#v", mustGet(t, book, "rating"))
	}
}

func mustGet(t *testing.T, doc document.Document, key string) any {
	t.Helper()
	value, ok := doc.Get(key)
	if !ok {
		t.Fatalf("missing %q in %v", key, doc.Keys())
	}
	return value
}
