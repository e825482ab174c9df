// Package testkit generates deterministic sales datasets for demos, the CLI
// and tests.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"kpijoin/domain/table"
)

// Column names of the generated datasets
const (
	ColOrderID   = "Order_ID"
	ColDate      = "Date"
	ColBrand     = "Brand"
	ColUnitsSold = "Units_Sold"
	ColPrice     = "Price"
	ColDiscount  = "Discount"
	ColRegion    = "Region"
	ColRating    = "Rating"
)

// SalesGeneratorConfig configures the sales data generator
type SalesGeneratorConfig struct {
	Rows          int       `json:"rows"`
	Brands        []string  `json:"brands"`
	Regions       []string  `json:"regions"`
	StartDate     time.Time `json:"start_date"`
	Months        int       `json:"months"`
	BaseUnits     float64   `json:"base_units"`     // mean units per order in the first month
	MonthlyGrowth float64   `json:"monthly_growth"` // relative change of mean units per month
	MissingRate   float64   `json:"missing_rate"`   // share of blank cells in optional columns
	Seed          int64     `json:"seed"`
}

// DefaultSalesConfig returns sensible defaults for sales data generation
func DefaultSalesConfig() SalesGeneratorConfig {
	return SalesGeneratorConfig{
		Rows:          200,
		Brands:        []string{"Acme", "Globex", "Initech", "Umbrella"},
		Regions:       []string{"North", "South", "East", "West"},
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Months:        6,
		BaseUnits:     20,
		MonthlyGrowth: 0.05,
		MissingRate:   0.02,
		Seed:          42,
	}
}

// SalesDataGenerator generates sales orders split across two joinable tables
type SalesDataGenerator struct {
	config SalesGeneratorConfig
	rng    *rand.Rand
}

// order is one generated sales line
type order struct {
	id       int
	date     time.Time
	brand    string
	units    int
	price    float64
	discount float64
	region   string
	rating   float64
}

// NewSalesDataGenerator creates a new sales data generator
func NewSalesDataGenerator(config SalesGeneratorConfig) (*SalesDataGenerator, error) {
	if config.Rows <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", config.Rows)
	}
	if config.Months <= 0 {
		return nil, fmt.Errorf("months must be positive, got %d", config.Months)
	}
	if len(config.Brands) == 0 || len(config.Regions) == 0 {
		return nil, fmt.Errorf("at least one brand and one region are required")
	}
	if config.MissingRate < 0 || config.MissingRate >= 1 {
		return nil, fmt.Errorf("missing rate must be in [0, 1), got %v", config.MissingRate)
	}
	return &SalesDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// GenerateSales returns a single table holding every column
func (g *SalesDataGenerator) GenerateSales() (*table.Table, error) {
	orders := g.generateOrders()
	return g.build(orders, ColOrderID, ColDate, ColBrand, ColUnitsSold, ColPrice, ColDiscount, ColRegion, ColRating)
}

// GeneratePair returns the same orders split into an orders table and a terms
// table sharing Order_ID.
func (g *SalesDataGenerator) GeneratePair() (*table.Table, *table.Table, error) {
	orders := g.generateOrders()
	a, err := g.build(orders, ColOrderID, ColDate, ColBrand, ColUnitsSold, ColPrice)
	if err != nil {
		return nil, nil, err
	}
	b, err := g.build(orders, ColOrderID, ColDiscount, ColRegion, ColRating)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (g *SalesDataGenerator) generateOrders() []order {
	// Brands differ in price level and regions in discount depth
	brandPrice := make(map[string]float64, len(g.config.Brands))
	for i, b := range g.config.Brands {
		brandPrice[b] = 50 + 25*float64(i)
	}
	regionDiscount := make(map[string]float64, len(g.config.Regions))
	for i, r := range g.config.Regions {
		regionDiscount[r] = 5 + 3*float64(i)
	}

	orders := make([]order, g.config.Rows)
	for i := range orders {
		month := g.rng.Intn(g.config.Months)
		day := 1 + g.rng.Intn(28)
		date := g.config.StartDate.AddDate(0, month, day-1)

		brand := g.config.Brands[g.rng.Intn(len(g.config.Brands))]
		region := g.config.Regions[g.rng.Intn(len(g.config.Regions))]

		mean := g.config.BaseUnits * math.Pow(1+g.config.MonthlyGrowth, float64(month))
		units := int(math.Max(1, math.Round(mean+g.rng.NormFloat64()*mean*0.25)))

		orders[i] = order{
			id:       1000 + i,
			date:     date,
			brand:    brand,
			units:    units,
			price:    roundCents(brandPrice[brand] * (0.9 + 0.2*g.rng.Float64())),
			discount: math.Round(math.Max(0, regionDiscount[region]+g.rng.NormFloat64()*2)),
			region:   region,
			rating:   math.Round(math.Min(5, math.Max(1, 4.2+g.rng.NormFloat64()*0.4))*10) / 10,
		}
	}
	return orders
}

func (g *SalesDataGenerator) build(orders []order, names ...string) (*table.Table, error) {
	columns := make([]*table.Column, len(names))
	for j, name := range names {
		values := make([]table.Value, len(orders))
		for i, o := range orders {
			values[i] = g.cell(o, name)
		}
		columns[j] = table.NewColumn(name, values)
	}
	return table.New(columns...)
}

// cell renders one field of an order. Optional fields are blanked at the
// configured missing rate; Order_ID and Date never are.
func (g *SalesDataGenerator) cell(o order, name string) table.Value {
	switch name {
	case ColOrderID:
		return table.Number(float64(o.id))
	case ColDate:
		return table.String(o.date.Format("2006-01-02"))
	}

	if g.blank(o.id, name) {
		return table.Missing()
	}
	switch name {
	case ColBrand:
		return table.String(o.brand)
	case ColUnitsSold:
		return table.Number(float64(o.units))
	case ColPrice:
		return table.Number(o.price)
	case ColDiscount:
		return table.Number(o.discount)
	case ColRegion:
		return table.String(o.region)
	case ColRating:
		return table.Number(o.rating)
	default:
		return table.Missing()
	}
}

// blank decides from the seed, order and column alone, independent of the
// order in which cells are generated.
func (g *SalesDataGenerator) blank(id int, column string) bool {
	if g.config.MissingRate == 0 {
		return false
	}
	h := uint64(g.config.Seed)*1_000_003 + uint64(id)*7919
	for _, r := range column {
		h = h*31 + uint64(r)
	}
	return float64(h%10_000)/10_000 < g.config.MissingRate
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
