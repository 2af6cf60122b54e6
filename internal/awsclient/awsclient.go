// Package awsclient constructs the AWS service clients used by the
// authorizer. Each client is created at most once per process, on first use,
// and shared by every invocation afterwards.
package awsclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
)

// Config selects the region and an optional endpoint override (e.g. LocalStack)
type Config struct {
	Region   string
	Endpoint string
}

// Clients hands out lazily constructed, process-wide AWS clients
type Clients struct {
	cfg Config

	load       func() (aws.Config, error)
	apiGateway func() (*apigateway.Client, error)
	dynamoDB   func() (*dynamodb.Client, error)
}

// New prepares the clients without contacting AWS
func New(cfg Config) *Clients {
	c := &Clients{cfg: cfg}
	c.load = sync.OnceValues(c.loadConfig)
	c.apiGateway = sync.OnceValues(func() (*apigateway.Client, error) {
		awsCfg, err := c.load()
		if err != nil {
			return nil, err
		}
		return apigateway.NewFromConfig(awsCfg, func(o *apigateway.Options) {
			if c.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.cfg.Endpoint)
			}
		}), nil
	})
	c.dynamoDB = sync.OnceValues(func() (*dynamodb.Client, error) {
		awsCfg, err := c.load()
		if err != nil {
			return nil, err
		}
		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if c.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.cfg.Endpoint)
			}
		}), nil
	})
	return c
}

func (c *Clients) loadConfig() (aws.Config, error) {
	// Failures surface to the caller immediately; the gateway treats them as deny.
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(1),
	}
	if c.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	logger.Debug("AWS config loaded", "region", awsCfg.Region, "endpoint_override", c.cfg.Endpoint != "")
	return awsCfg, nil
}

// APIGateway returns the shared API Gateway client
func (c *Clients) APIGateway() (*apigateway.Client, error) {
	return c.apiGateway()
}

// DynamoDB returns the shared DynamoDB client
func (c *Clients) DynamoDB() (*dynamodb.Client, error) {
	return c.dynamoDB()
}
