// Package decision turns a resolved API key record into the authorizer
// response API Gateway expects.
package decision

import (
	"fmt"
	"strings"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/headers"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
)

const (
	PolicyVersion = "2012-10-17"
	InvokeAction  = "execute-api:Invoke"
	EffectAllow   = "Allow"
)

// Request is the part of the REQUEST authorizer event the authorizer reads
type Request struct {
	Headers        map[string]string `json:"headers"`
	RequestContext RequestContext    `json:"requestContext"`
}

// RequestContext identifies the API stage being invoked
type RequestContext struct {
	AccountID string `json:"accountId"`
	APIID     string `json:"apiId"`
	Stage     string `json:"stage"`
}

// Decision is the authorizer response
type Decision struct {
	PrincipalID        string            `json:"principalId"`
	PolicyDocument     PolicyDocument    `json:"policyDocument"`
	Context            map[string]string `json:"context"`
	UsageIdentifierKey string            `json:"usageIdentifierKey"`
}

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

// Config controls how decisions are derived from key tags
type Config struct {
	Region string
	// PrincipalIDTagName names the tag holding the principal; empty means
	// always use DefaultPrincipalID.
	PrincipalIDTagName string
	DefaultPrincipalID string
	ContextTagPrefix   string
	CopyRequestHeaders []string
}

// Builder derives decisions. It is safe for concurrent use.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	headersCopy := make([]string, len(cfg.CopyRequestHeaders))
	copy(headersCopy, cfg.CopyRequestHeaders)
	cfg.CopyRequestHeaders = headersCopy
	return &Builder{cfg: cfg}
}

// Build returns the allow decision for rec. candidate is the credential
// extracted from req and becomes the usage identifier key. It fails with
// apperrors.ErrUnauthorized when no principal can be determined.
func (b *Builder) Build(rec keys.Record, req Request, candidate string) (Decision, error) {
	principal, ok := b.principal(rec)
	if !ok {
		return Decision{}, apperrors.ErrUnauthorized
	}

	return Decision{
		PrincipalID: principal,
		PolicyDocument: PolicyDocument{
			Version: PolicyVersion,
			Statement: []Statement{{
				Action:   InvokeAction,
				Effect:   EffectAllow,
				Resource: b.Resource(req.RequestContext),
			}},
		},
		Context:            b.context(rec, req.Headers),
		UsageIdentifierKey: candidate,
	}, nil
}

// Resource is the execute-api ARN covering every method and path of the stage
func (b *Builder) Resource(rc RequestContext) string {
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/*", b.cfg.Region, rc.AccountID, rc.APIID, rc.Stage)
}

func (b *Builder) principal(rec keys.Record) (string, bool) {
	if b.cfg.PrincipalIDTagName != "" {
		if v, ok := rec.Tag(b.cfg.PrincipalIDTagName); ok && v != "" {
			return v, true
		}
	}
	if b.cfg.DefaultPrincipalID != "" {
		return b.cfg.DefaultPrincipalID, true
	}
	return "", false
}

func (b *Builder) context(rec keys.Record, h map[string]string) map[string]string {
	ctx := make(map[string]string)
	for k, v := range rec.Tags {
		if strings.HasPrefix(k, b.cfg.ContextTagPrefix) {
			ctx[strings.TrimPrefix(k, b.cfg.ContextTagPrefix)] = v
		}
	}
	// Request headers override tags with the same key
	for _, name := range b.cfg.CopyRequestHeaders {
		if v, ok := headers.FirstValue(h, name); ok {
			ctx[strings.ReplaceAll(name, "-", "_")] = v
		}
	}
	return ctx
}
