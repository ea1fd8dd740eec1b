package dataset

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/finopslabs/focus-mcp/internal/duck"
)

// setupRemoteAccess prepares the connection for s3:// locations: the
// httpfs extension plus an S3 secret resolved through the AWS default
// credential chain (env vars, shared profiles, IAM roles, IMDS).
// Credential resolution is otherwise opaque to this core.
func (v *View) setupRemoteAccess(ctx context.Context, conn duck.Connection) error {
	if _, err := conn.ExecContext(ctx, "INSTALL httpfs; LOAD httpfs;"); err != nil {
		return fmt.Errorf("%w: failed to load httpfs: %v", ErrDataUnavailable, err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if v.cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(v.cfg.AWSRegion))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: failed to load AWS config: %v", ErrDataUnavailable, err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to resolve AWS credentials: %v", ErrDataUnavailable, err)
	}

	var b strings.Builder
	b.WriteString("CREATE OR REPLACE SECRET focus_s3 (TYPE s3")
	b.WriteString(", KEY_ID " + quoteLiteral(creds.AccessKeyID))
	b.WriteString(", SECRET " + quoteLiteral(creds.SecretAccessKey))
	if creds.SessionToken != "" {
		b.WriteString(", SESSION_TOKEN " + quoteLiteral(creds.SessionToken))
	}
	if cfg.Region != "" {
		b.WriteString(", REGION " + quoteLiteral(cfg.Region))
	}
	b.WriteString(")")

	if _, err := conn.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("%w: failed to create S3 secret: %v", ErrDataUnavailable, err)
	}

	v.log.Debug("dataset: configured S3 access", "region", cfg.Region)
	return nil
}
