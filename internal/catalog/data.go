package catalog

import (
	"github.com/shopspring/decimal"

	"supplyhub/internal/model"
)

// Load builds the demo catalog: three suppliers, six parts, two items.
// Supplier addresses here are defaults; re-registration through the API
// overwrites them in the store.
func Load() *Catalog {
	suppliers := []model.Supplier{
		{ID: 1, Name: "RPM joy Inc.", Address: "0x0e5658FD58DF4F5651A7732A007E9e13A1182780"},
		{ID: 2, Name: "Screwed Up Inc.", Address: "0x69d796a13424bff54535Ab9792388456Dc43d0Cc"},
		{ID: 3, Name: "Tri-phased Inc.", Address: "0xCc945723F42e76b05E6f0e055231fABD4d889e1f"},
	}

	motor := &Part{ID: 1, Name: "Motor 12V 2A", SupplierID: 1, Price: dec("200")}
	gearbox := &Part{ID: 2, Name: "Gearbox 6-levels", SupplierID: 1, Price: dec("150")}
	screwM8 := &Part{ID: 3, Name: "Screw hex head M8", SupplierID: 2, Price: dec("3")}
	washerM8 := &Part{ID: 4, Name: "Washer M8 thickness 2mm", SupplierID: 2, Price: dec("1.8")}
	nutM8 := &Part{ID: 5, Name: "Nut hexagonal M8", SupplierID: 2, Price: dec("2.2")}
	cable := &Part{ID: 6, Name: "Cable, dia. 4mm, 3m", SupplierID: 3, Price: dec("6.2")}

	parts := []*Part{motor, gearbox, screwM8, washerM8, nutM8, cable}

	items := []*Item{
		{
			ID:   1,
			Name: "Motor with mounting material",
			Composition: []Component{
				{Part: motor, Count: 1},
				{Part: screwM8, Count: 15},
				{Part: washerM8, Count: 15},
				{Part: nutM8, Count: 15},
				{Part: cable, Count: 3},
			},
		},
		{
			ID:   2,
			Name: "Gearbox with mounting material",
			Composition: []Component{
				{Part: gearbox, Count: 1},
				{Part: screwM8, Count: 20},
				{Part: nutM8, Count: 20},
			},
		},
	}

	return New(suppliers, parts, items)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
