// Package ontology resolves SDRF cell values against ontology terms.
//
// Resolver is the lookup contract used by the ontology validator. The
// package provides an OLS search client, a SQLite term index that can be
// imported from a term list, an in-memory StaticResolver and a Cache that
// memoises any of them by (ontology, normalised term).
//
// OLSClient paces its requests with a TokenBucket when
// OLSConfig.RequestsPerSecond is set.
//
// A missing term is reported through Match.Found; an error from Lookup
// always means the ontology could not be consulted and is a *ServiceError.
package ontology
