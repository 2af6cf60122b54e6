package keys

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigateway"
)

// MockAPIGatewayClient is a mock implementation of APIGatewayClient for testing.
type MockAPIGatewayClient struct {
	GetApiKeysFunc func(ctx context.Context, params *apigateway.GetApiKeysInput, optFns ...func(*apigateway.Options)) (*apigateway.GetApiKeysOutput, error)
}

// GetApiKeys mocks the GetApiKeys operation.
func (m *MockAPIGatewayClient) GetApiKeys(ctx context.Context, params *apigateway.GetApiKeysInput, optFns ...func(*apigateway.Options)) (*apigateway.GetApiKeysOutput, error) {
	if m.GetApiKeysFunc != nil {
		return m.GetApiKeysFunc(ctx, params, optFns...)
	}
	return &apigateway.GetApiKeysOutput{}, nil
}
