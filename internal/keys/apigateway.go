package keys

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"golang.org/x/time/rate"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
)

// PageSize is the number of keys requested per GetApiKeys call
const PageSize int32 = 500

// APIGatewayClient is the subset of the API Gateway API used for key listing
type APIGatewayClient interface {
	GetApiKeys(ctx context.Context, params *apigateway.GetApiKeysInput, optFns ...func(*apigateway.Options)) (*apigateway.GetApiKeysOutput, error)
}

// APIGatewayLister lists API keys, values included, from API Gateway
type APIGatewayLister struct {
	client  APIGatewayClient
	limiter *rate.Limiter
}

// NewAPIGatewayLister creates a lister. pagesPerSecond bounds GetApiKeys
// calls across all scans sharing this lister; 0 disables the limit.
func NewAPIGatewayLister(client APIGatewayClient, pagesPerSecond float64) *APIGatewayLister {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if pagesPerSecond > 0 {
		burst := int(pagesPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(pagesPerSecond), burst)
	}
	return &APIGatewayLister{client: client, limiter: limiter}
}

func (l *APIGatewayLister) ListKeys(ctx context.Context, visit func(Record) bool) error {
	paginator := apigateway.NewGetApiKeysPaginator(l.client, &apigateway.GetApiKeysInput{
		IncludeValues: aws.Bool(true),
		Limit:         aws.Int32(PageSize),
	})

	for paginator.HasMorePages() {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return apperrors.ServiceError{Service: "apigateway", Operation: "GetApiKeys", Err: err}
		}
		metrics.RecordKeyScanPage()

		for _, item := range page.Items {
			if !visit(recordFromAPIKey(item)) {
				return nil
			}
		}
	}
	return nil
}

func recordFromAPIKey(k types.ApiKey) Record {
	return Record{
		ID:    aws.ToString(k.Id),
		Value: aws.ToString(k.Value),
		Tags:  k.Tags,
	}
}
