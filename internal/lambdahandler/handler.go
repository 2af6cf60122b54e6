// Package lambdahandler binds the authorizer to the Lambda REQUEST authorizer event.
package lambdahandler

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/rajasatyajit/apikey-authorizer/internal/authorizer"
	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
)

// errUnauthorized carries no wrapping so the runtime reports exactly "Unauthorized"
var errUnauthorized = errors.New("Unauthorized")

// Authorizer is the core the handler delegates to
type Authorizer interface {
	Authorize(ctx context.Context, req authorizer.Request) (authorizer.Decision, error)
}

type Handler struct {
	auth Authorizer
}

func New(auth Authorizer) *Handler {
	return &Handler{auth: auth}
}

// Handle is registered with lambda.Start
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayCustomAuthorizerRequestTypeRequest) (authorizer.Decision, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		ctx = logger.ContextWithRequestID(ctx, lc.AwsRequestID)
	}

	d, err := h.auth.Authorize(ctx, FromEvent(event))
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			return authorizer.Decision{}, errUnauthorized
		}
		return authorizer.Decision{}, err
	}
	return d, nil
}

// FromEvent extracts the fields the authorizer reads
func FromEvent(event events.APIGatewayCustomAuthorizerRequestTypeRequest) authorizer.Request {
	return authorizer.Request{
		Headers: event.Headers,
		RequestContext: authorizer.RequestContext{
			AccountID: event.RequestContext.AccountID,
			APIID:     event.RequestContext.APIID,
			Stage:     event.RequestContext.Stage,
		},
	}
}
