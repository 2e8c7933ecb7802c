//go:build ignore

// Generates the sample inputs used by the README examples:
//
//	go run testdata/generate.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/output"
)

type Product struct {
	Product   string   `parquet:"product"`
	Category  string   `parquet:"category"`
	UnitPrice *float64 `parquet:"unit_price,optional"`
	UnitCost  *float64 `parquet:"unit_cost,optional"`
	InStock   bool     `parquet:"in_stock"`
}

func price(f float64) *float64 { return &f }

func main() {
	dir := "testdata"
	products := []Product{
		{Product: "widget", Category: "ware", UnitPrice: price(4), UnitCost: price(2.5), InStock: true},
		{Product: "gadget", Category: "ware", UnitPrice: price(10), InStock: false},
		{Product: "doohickey", Category: "ware", UnitCost: price(1), InStock: true},
		{Product: "gizmo", Category: "drink", UnitPrice: price(8), UnitCost: price(6), InStock: true},
	}

	f, err := os.Create(filepath.Join(dir, "product.parquet"))
	if err != nil {
		log.Fatal(err)
	}
	writer := parquet.NewGenericWriter[Product](f)
	if _, err := writer.Write(products); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}

	orders := frame.MustTable(
		frame.FromStrings("product", []string{"widget", "gizmo", "widget", "gadget"}, nil),
		frame.FromInt64s("qty", []int64{2, 1, 3, 1}, nil),
	)
	for _, name := range []string{"orders.csv", "orders.csv.gz", "orders.arrows"} {
		if err := output.WriteFile(filepath.Join(dir, name), orders, ""); err != nil {
			log.Fatal(err)
		}
	}

	log.Println("Generated product.parquet and orders files")
}
