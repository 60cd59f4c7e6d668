package seed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/docmesh/docmesh/internal/document"
)

var (
	firstNames = []string{"Ada", "Alan", "Barbara", "Claude", "Edsger", "Frances", "Grace", "Ken", "Linus", "Margaret", "Niklaus", "Radia"}
	lastNames  = []string{"Lovelace", "Turing", "Liskov", "Shannon", "Dijkstra", "Allen", "Hopper", "Thompson", "Torvalds", "Hamilton", "Wirth", "Perlman"}
	cities     = []struct{ city, country string }{
		{"Berlin", "DE"}, {"Munich", "DE"}, {"London", "GB"}, {"New York", "US"},
		{"Austin", "US"}, {"Tokyo", "JP"}, {"Bangalore", "IN"}, {"Sao Paulo", "BR"},
	}
	products = []struct {
		sku   string
		name  string
		price float64
	}{
		{"KB-101", "mechanical keyboard", 89.90},
		{"MS-202", "wireless mouse", 24.50},
		{"MN-303", "27in monitor", 279.00},
		{"HD-404", "usb-c hub", 39.99},
		{"HP-505", "headphones", 129.00},
		{"CB-606", "cable pack", 9.95},
	}
	authors = []string{"Ursula K. Le Guin", "Isaac Asimov", "Octavia E. Butler", "Stanislaw Lem", "Terry Pratchett", "N. K. Jemisin", "Frank Herbert", "Iain M. Banks"}
	genres  = []string{"science fiction", "fantasy", "classic", "satire", "space opera", "dystopia"}
	words   = []string{"Silent", "Iron", "Glass", "Distant", "Hollow", "Burning", "Last", "Hidden", "Star", "City", "Garden", "Machine", "River", "Archive", "Empire", "Signal"}
)

// epoch anchors every generated timestamp so runs with the same seed produce
// identical documents.
var epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func CustomerID(n int) string {
	return fmt.Sprintf("cust-%04d", n)
}

func (g *Generator) Customer(n int) document.Document {
	first := pickOne(g.rnd, firstNames)
	last := pickOne(g.rnd, lastNames)
	place := cities[g.rnd.Intn(len(cities))]
	tags := []any{}
	if g.rnd.Intn(3) == 0 {
		tags = append(tags, "newsletter")
	}
	if g.rnd.Intn(4) == 0 {
		tags = append(tags, "vip")
	}
	return document.Document{
		{Key: "_id", Value: CustomerID(n)},
		{Key: "name", Value: first + " " + last},
		{Key: "email", Value: fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), n)},
		{Key: "age", Value: int64(18 + g.rnd.Intn(58))},
		{Key: "address", Value: document.Document{
			{Key: "city", Value: place.city},
			{Key: "country", Value: place.country},
		}},
		{Key: "tier", Value: pickOne(g.rnd, []string{"bronze", "bronze", "silver", "gold"})},
		{Key: "active", Value: g.rnd.Intn(10) < 8},
		{Key: "tags", Value: tags},
		{Key: "signed_up_at", Value: epoch.Add(time.Duration(g.rnd.Intn(365*24)) * time.Hour).Format(time.RFC3339)},
	}
}

func (g *Generator) Order(n, customers int) document.Document {
	count := 1 + g.rnd.Intn(3)
	items := make([]any, 0, count)
	total := 0.0
	for i := 0; i < count; i++ {
		product := products[g.rnd.Intn(len(products))]
		qty := int64(1 + g.rnd.Intn(3))
		total += product.price * float64(qty)
		items = append(items, document.Document{
			{Key: "sku", Value: product.sku},
			{Key: "name", Value: product.name},
			{Key: "qty", Value: qty},
			{Key: "price", Value: product.price},
		})
	}
	return document.Document{
		{Key: "_id", Value: fmt.Sprintf("ord-%06d", n)},
		{Key: "customer_id", Value: CustomerID(1 + g.rnd.Intn(customers))},
		{Key: "items", Value: items},
		{Key: "total", Value: round2(total)},
		{Key: "status", Value: g.pickStatus()},
		{Key: "created_at", Value: epoch.Add(time.Duration(g.rnd.Intn(365*24*60)) * time.Minute).Format(time.RFC3339)},
	}
}

func (g *Generator) Book(n int) document.Document {
	first := genres[g.rnd.Intn(len(genres))]
	second := genres[g.rnd.Intn(len(genres))]
	bookGenres := []any{first}
	if second != first {
		bookGenres = append(bookGenres, second)
	}
	return document.Document{
		{Key: "_id", Value: fmt.Sprintf("book-%04d", n)},
		{Key: "title", Value: "The " + pickOne(g.rnd, words) + " " + pickOne(g.rnd, words)},
		{Key: "author", Value: pickOne(g.rnd, authors)},
		{Key: "year", Value: int64(1950 + g.rnd.Intn(75))},
		{Key: "genres", Value: bookGenres},
		{Key: "pages", Value: int64(150 + g.rnd.Intn(600))},
		{Key: "rating", Value: round2(2.5 + g.rnd.Float64()*2.5)},
		{Key: "available", Value: g.rnd.Intn(4) != 0},
	}
}

func (g *Generator) pickStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 15:
		return "pending"
	case p < 40:
		return "shipped"
	case p < 92:
		return "delivered"
	default:
		return "cancelled"
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
