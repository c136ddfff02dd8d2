// Package retrieval embeds the Riptide hybrid search engine as a library.
//
// A [Client] owns everything under one data directory: the per-tenant
// partitions, the embedding provider, and the fused vector+keyword search
// engine. Open builds the whole stack from defaults or layered
// configuration; Close flushes and releases it.
//
// # Usage
//
//	client, err := retrieval.Open(ctx, "/var/lib/riptide",
//	    retrieval.WithWeights(0.7, 0.3),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// Index a JSONL corpus. The tenant is created on first load.
//	if _, err := client.Load(ctx, "acme", "corpus.jsonl"); err != nil {
//	    return err
//	}
//
//	outcome, err := client.Search(ctx, retrieval.Request{
//	    TenantID: "acme",
//	    Query:    "mooring plan for the north quay",
//	})
//	if err != nil {
//	    return err // invalid request; source failures never land here
//	}
//	for _, r := range outcome.Results {
//	    fmt.Println(r.DocID, r.CombinedScore)
//	}
//
// # Degradation
//
// Search never fails because a source failed. When the vector or keyword
// side errors or misses the fan-out deadline, the outcome carries the
// results the surviving source produced and [Outcome.Tier] names the
// service level reached. Callers distinguish "no matches" from "engine
// down" by the tier, not by an error.
//
// # Thread safety
//
// All Client methods are safe for concurrent use. Searches run in
// parallel; loads against the same client serialize with each other.
package retrieval
