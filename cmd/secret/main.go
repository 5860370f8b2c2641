package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/inbound-processor/inbound/signature"
	"github.com/spf13/pflag"
)

/* secret - creates signing secrets and signs payloads for testing endpoints
 * Usage:
 *   go run cmd/secret/main.go [--size 32]                       new whsec_ secret
 *   go run cmd/secret/main.go --sign whsec_... payload.json     standard-webhooks headers
 *   go run cmd/secret/main.go --hmac s3cr3t payload.json        hmac Signature header
 * Exit codes: 0 = ok, 1 = failure
 */

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, now func() time.Time) error {
	flags := pflag.NewFlagSet("secret", pflag.ContinueOnError)
	size := flags.Int("size", 32, "secret size in bytes")
	sign := flags.String("sign", "", "standard-webhooks secret to sign the payload file with")
	hmacSecret := flags.String("hmac", "", "hmac secret to sign the payload file with")
	msgID := flags.String("id", "", "webhook-id to sign (default: a new uuid)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *sign == "" && *hmacSecret == "" {
		secret, err := signature.GenerateSecret(*size)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, secret.String())
		return nil
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("expected one payload file")
	}
	payload, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	if *hmacSecret != "" {
		fmt.Fprintf(out, "Signature: %s\n", signature.ComputeHMAC([]byte(*hmacSecret), payload))
		return nil
	}

	secret, err := signature.ParseSecret(*sign)
	if err != nil {
		return err
	}
	id := *msgID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}
	ts := now()
	sig, err := signature.Sign(secret, id, ts, payload)
	if err != nil {
		return fmt.Errorf("signing payload: %w", err)
	}

	fmt.Fprintf(out, "%s: %s\n", signature.HeaderID, id)
	fmt.Fprintf(out, "%s: %d\n", signature.HeaderTimestamp, ts.Unix())
	fmt.Fprintf(out, "%s: %s\n", signature.HeaderSignature, signature.BuildSignatureHeader([]signature.Signature{sig}))
	return nil
}
