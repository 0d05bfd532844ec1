package diff

// Translate flattens batches into updates, keeping batch order and, within a
// batch, detection order. A cell edited twice therefore ends with the later
// value applied last.
//
// Every diff of a batch addresses its row by the key it had before the edit.
// When an update changes a key column, the later updates of the same batch
// that address that row are rewritten to the new key.
func Translate(batches []Batch) []DbCellUpdate {
	var n int
	for _, b := range batches {
		n += len(b.Diffs)
	}

	updates := make([]DbCellUpdate, 0, n)
	for _, b := range batches {
		start := len(updates)
		for _, d := range b.Diffs {
			u := DbCellUpdate{
				ScenarioName: d.ScenarioName,
				TableName:    d.TableName,
				RowIndex:     append([]KeyValue(nil), d.RowIndex...),
				ColumnName:   d.ColumnName,
				CurrentValue: d.CurrentValue,
			}
			updates = append(updates, u)
		}
		followKeyChanges(updates[start:])
	}
	return updates
}

func followKeyChanges(batch []DbCellUpdate) {
	for i, u := range batch {
		pos := keyPosition(u.RowIndex, u.ColumnName)
		if pos < 0 {
			continue
		}
		moved := append([]KeyValue(nil), u.RowIndex...)
		moved[pos].Value = u.CurrentValue

		for j := i + 1; j < len(batch); j++ {
			later := &batch[j]
			if later.ScenarioName == u.ScenarioName && later.TableName == u.TableName && sameKey(later.RowIndex, u.RowIndex) {
				later.RowIndex = append([]KeyValue(nil), moved...)
			}
		}
	}
}

func keyPosition(index []KeyValue, column string) int {
	for i, kv := range index {
		if kv.Column == column {
			return i
		}
	}
	return -1
}

func sameKey(a, b []KeyValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Column != b[i].Column || !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
