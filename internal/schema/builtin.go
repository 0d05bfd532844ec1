package schema

// DefaultTables returns the fruit-distribution tables created by the bundled
// migrations, in declaration order.
func DefaultTables() []Table {
	return []Table{
		{Name: "Scenario", DBName: "scenario"},
		{
			Name:         "ProductMargin",
			DBName:       "product_margin",
			IndexColumns: []string{"product"},
			ValueColumns: []string{"margin", "size"},
		},
		{
			Name:          "Inventory",
			DBName:        "inventory",
			IndexColumns:  []string{"product"},
			ValueColumns:  []string{"inventory"},
			ForeignTables: []ForeignKey{{Table: "ProductMargin", Columns: []string{"product"}}},
		},
		{
			Name:          "Demand",
			DBName:        "demand",
			IndexColumns:  []string{"product", "customer"},
			ValueColumns:  []string{"demand"},
			ForeignTables: []ForeignKey{{Table: "ProductMargin", Columns: []string{"product"}}},
		},
		{
			Name:         "Truck",
			DBName:       "truck",
			IndexColumns: []string{"truck_model"},
			ValueColumns: []string{"truck_capacity", "truck_cost", "availability"},
		},
		{
			Name:         "Parameter",
			DBName:       "parameter",
			IndexColumns: []string{"param"},
			ValueColumns: []string{"value"},
		},
		{
			Name:          "DemandOutput",
			DBName:        "demand_output",
			IndexColumns:  []string{"product", "customer"},
			ValueColumns:  []string{"demand", "margin", "size", "planned_delivery"},
			ForeignTables: []ForeignKey{{Table: "Demand", Columns: []string{"product", "customer"}}},
		},
		{
			Name:          "TruckOutput",
			DBName:        "customer_truck_output",
			IndexColumns:  []string{"customer", "truck_model"},
			ValueColumns:  []string{"truck_capacity", "truck_cost", "num_trucks"},
			ForeignTables: []ForeignKey{{Table: "Truck", Columns: []string{"truck_model"}}},
		},
		{
			Name:         "Kpis",
			DBName:       "kpis",
			IndexColumns: []string{"name"},
			ValueColumns: []string{"value"},
		},
	}
}

// Default returns the registry for DefaultTables.
func Default() *Registry {
	r, err := NewRegistry(DefaultTables())
	if err != nil {
		panic(err)
	}
	return r
}
