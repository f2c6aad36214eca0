// Package query validates decision record queries before they reach a
// storage backend.
//
//	q := &evidence.Query{BlockingLaw: "first", SortOrder: "asc"}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q)
//	records, err := store.Query(ctx, q)
package query
