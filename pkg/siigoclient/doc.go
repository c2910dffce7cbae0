// Package siigoclient provides the primary entry point for constructing a
// Siigo API client that implements the siigo.Client interface.
//
// It layers configuration, pooled HTTP transport, retries and token
// management on top of the resource interfaces and types defined in the
// siigo package.
//
// Quick start
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
//
//	  cli, err := siigoclient.New(ctx, &siigo.Config{
//	    Username:  "api@example.com",
//	    AccessKey: "access-key",
//	    PartnerID: "my-integration",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  it := cli.Customers().List(ctx, siigo.NewQueryParams().WithPageSize(50))
//	  for customer, err := range it.Seq() {
//	    if err != nil { log.Fatal(err) }
//	    log.Println(customer.ID, customer.DisplayName())
//	  }
//	}
//
// # Environment
//
// NewFromEnv and LoadConfig read SIIGO_USERNAME, SIIGO_ACCESS_KEY,
// SIIGO_PARTNER_ID and the optional tuning keys (SIIGO_TIMEOUT,
// SIIGO_MAX_RETRIES, SIIGO_RATE_LIMIT, ...). SIIGO_CONFIG may name a YAML
// file with the same keys in lower case; environment variables win.
package siigoclient
