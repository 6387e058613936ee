// Package search answers record queries.
//
// A Service takes the raw query parameters of a request, normalizes them
// into a query.Request, assembles a query.Pipeline and hands it to a store
// exactly once. The store returns both the requested page and the total
// number of matching records, computed from the same filters.
//
//	svc := search.NewService(store, search.Options{
//		Backend: store.Backend(),
//		Limits:  query.DefaultLimits(),
//	})
//	resp := svc.Search(ctx, r.URL.Query())
//
// Malformed parameters never fail a search; they are ignored or replaced
// by their defaults. Store failures are not retried and come back as a
// Response whose error wraps ErrQueryFailed:
//
//	{"success":true,"data":[...],"total":42}
//	{"success":false,"error":"query execution failed: ..."}
//
// Pagination limits can be changed at runtime with SetLimits; searches in
// flight keep the limits they started with.
package search
