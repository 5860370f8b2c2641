package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/inbound-processor/endpoints"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/internal/app"
	"github.com/spf13/pflag"
)

/* validate-endpoints - Standalone CLI tool to validate endpoints.yaml
 * Usage: go run cmd/validate-endpoints/main.go [--postgres] [endpoints.yaml]
 * Components are resolved without connecting to any store.
 * Exit codes: 0 = valid, 1 = invalid
 */

// offlineStore satisfies the store capability so identifiers can be checked without a connection
type offlineStore struct {
	inbound.Store
}

func main() {
	withPostgres := pflag.Bool("postgres", false, "accept the postgres store identifier")
	pflag.Parse()

	endpointsFile := "endpoints.yaml"
	if pflag.NArg() > 0 {
		endpointsFile = pflag.Arg(0)
	}

	fmt.Printf("Validating endpoints file: %s\n", endpointsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := endpoints.NewLoader()
	if err := loader.Load(endpointsFile); err != nil {
		fail(err)
	}

	stores := map[string]inbound.Store{app.StoreRedis: offlineStore{}}
	if *withPostgres {
		stores[app.StorePostgres] = offlineStore{}
	}
	components, err := app.NewComponents(stores, loader.EventTypeProfiles())
	if err != nil {
		fail(err)
	}
	if _, err := loader.Build(components); err != nil {
		fail(err)
	}

	list := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d endpoint(s):\n", len(list))

	for i, e := range list {
		s := e.Settings
		fmt.Printf("\n%d. Endpoint: %s\n", i+1, e.Name())
		fmt.Printf("   Route:         %s %s\n", e.Method, e.Path)
		fmt.Printf("   Validator:     %s (header %q)\n", s.SignatureValidator, s.SignatureHeaderName)
		fmt.Printf("   Profile:       %s\n", s.InboundProfile)
		fmt.Printf("   Data model:    %s\n", s.InboundDataModel)
		fmt.Printf("   Job:           %s\n", s.ProcessInboundDataJob)
		if s.SigningSecret == "" {
			fmt.Printf("   ⚠ signing secret is not set, every call will be rejected\n")
		}
	}

	fmt.Printf("\n✓ All endpoints are valid!\n")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
