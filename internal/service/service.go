// Package service implements the mutation gateway and the read views behind the HTTP surface.
package service

import (
	"context"
	"strconv"

	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Revalidator drops cached renders of view paths. Failures never surface to the caller.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Reconciler records a two-system write whose local step did not land.
type Reconciler interface {
	Record(ctx context.Context, rec models.Reconciliation) error
}

// IdentityProvider is the subset of the identity provider's admin API the services use.
type IdentityProvider interface {
	UpdatePublicMetadata(ctx context.Context, userID string, metadata map[string]any) error
	DeleteUser(ctx context.Context, userID string) error
}

// FileUpload is an uploaded form file held in memory.
type FileUpload struct {
	Name string
	// ContentType is the type declared by the client, consulted when sniffing is inconclusive.
	ContentType string
	Data        []byte
}

// Empty reports whether no file was supplied.
func (f *FileUpload) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// View paths invalidated by mutations.
const feedPath = "/"
const settingsPath = "/settings"

func profilePath(username string) string {
	return "/" + username
}

func statusPath(username string, postID uint) string {
	return "/" + username + "/status/" + strconv.FormatUint(uint64(postID), 10)
}

type operation struct {
	name   string
	span   *observability.Span
	logger *observability.StructuredLogger
}

// begin starts the span for a service method.
func begin(ctx context.Context, logger *observability.StructuredLogger, name, callerID string) (*operation, context.Context) {
	span, ctx := observability.NewSpan(ctx, name, attribute.String("user.id", callerID))
	return &operation{name: name, span: span, logger: logger}, ctx
}

// end records the outcome metric, log line and span status, then returns err unchanged.
func (o *operation) end(ctx context.Context, err error, fields ...any) error {
	defer o.span.End()

	code := models.ErrorCode(err)
	if err != nil {
		o.span.SetError(err)
		if code == "" {
			code = models.CodeInternal
		}
	}
	observability.RecordAction(o.name, code)
	o.logger.LogServiceCall(ctx, o.name, err, fields...)
	return err
}
