package schema

import "fmt"

// SortByDependency orders tables so that every table follows the tables its
// foreign keys reference. Independent tables keep their input order. Foreign
// keys to tables outside the set are ignored.
func SortByDependency(tables []Table) ([]Table, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
		if t.DBName != "" {
			index[t.DBName] = i
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(tables))
	order := make([]Table, 0, len(tables))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: foreign key cycle through %s", ErrInvalidSchema, tables[i].Name)
		}
		state[i] = visiting
		for _, fk := range tables[i].ForeignTables {
			j, ok := index[fk.Table]
			if !ok || j == i {
				continue
			}
			if err := visit(j); err != nil {
				return err
			}
		}
		state[i] = done
		order = append(order, tables[i])
		return nil
	}

	for i := range tables {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
