// Package siigo provides types, interfaces, and helpers for working with the
// Siigo accounting API.
//
// # Overview
//
// The siigo package defines the domain types (Customer, Webhook), the
// interfaces of the resource clients (CustomersClient, WebhooksClient), the
// client configuration and the error taxonomy. A concrete implementation is
// provided by the siigoclient package, which wires authentication, the
// retrying transport and the resource clients.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/arendondiosa/siigo-go/pkg/siigo"
//	  "github.com/arendondiosa/siigo-go/pkg/siigoclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := siigoclient.New(ctx, &siigo.Config{
//	    Username:  "api@example.com",
//	    AccessKey: "access-key",
//	    PartnerID: "my-integration",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  customer, err := cli.Customers().Get(ctx, "6b4a1f0e-...")
//	  if err != nil { log.Fatal(err) }
//	  _ = customer
//	}
//
// # Queries and pagination
//
// List endpoints return a lazy PaginationIterator. Pages are requested one at
// a time as the iterator advances, following the next link of each page:
//
//	it := cli.Customers().List(ctx, siigo.NewQueryParams().WithPageSize(50))
//	for customer, err := range it.Seq() {
//	  if err != nil { break }
//	  _ = customer
//	}
//
// # Errors
//
// Failures are reported with typed errors: AuthenticationError,
// TransportError, ServerError, ClientError (with the NotFoundError and
// ValidationError specializations), DecodingError and ClientClosedError.
// Helpers such as IsNotFound, IsUnauthorized and IsRetryable branch on the
// common cases.
//
// # Retries and idempotency
//
// Reads, PUT and DELETE are retried on transient failures. POST is retried
// only when the request provably never reached the server, unless the call
// carries an idempotency key (WithIdempotencyKey) or is marked WithRetrySafe.
package siigo
