// Package plan parses and evaluates the credential extraction plan: an
// ordered list of steps, each describing one place in the request where an
// API key may be found.
package plan

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/headers"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
)

// Encoding of a bearer token
type Encoding string

const (
	EncodingPlain  Encoding = "plain"
	EncodingBase64 Encoding = "base64"
)

var (
	// ErrUnrecognizedStep is returned by ParseStep for text that matches no step form
	ErrUnrecognizedStep = errors.New("unrecognized extraction step")

	// ErrInvalidBearerEncoding is fatal for the invocation that hit it
	ErrInvalidBearerEncoding = fmt.Errorf("%w: bearer token is not valid base64", apperrors.ErrInvalidInput)
)

var (
	bearerPattern = regexp.MustCompile(`^authorization:bearer\((plain|base64)\)$`)
	headerPattern = regexp.MustCompile(`^header:([^()]+)\(\)$`)
)

// Step is one extraction instruction. The set of implementations is closed:
// BearerStep and HeaderStep.
type Step interface {
	// Extract returns the candidate credential, or found=false if this step
	// yields nothing for the request.
	Extract(h map[string]string) (value string, found bool, err error)
	String() string
}

// BearerStep reads "Authorization: Bearer <token>"
type BearerStep struct {
	Encoding Encoding
}

func (s BearerStep) String() string {
	return fmt.Sprintf("authorization:bearer(%s)", s.Encoding)
}

func (s BearerStep) Extract(h map[string]string) (string, bool, error) {
	authorization, ok := headers.FirstValue(h, headers.Authorization)
	if !ok {
		return "", false, nil
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false, nil
	}
	token := parts[1]

	if s.Encoding == EncodingBase64 {
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrInvalidBearerEncoding, err)
		}
		if !utf8.Valid(decoded) {
			return "", false, fmt.Errorf("%w: decoded token is not UTF-8", ErrInvalidBearerEncoding)
		}
		token = string(decoded)
	}

	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// HeaderStep reads a named header verbatim
type HeaderStep struct {
	Name string
}

func (s HeaderStep) String() string {
	return fmt.Sprintf("header:%s()", s.Name)
}

func (s HeaderStep) Extract(h map[string]string) (string, bool, error) {
	value, ok := headers.FirstValue(h, s.Name)
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// ParseStep parses the textual form of a single step
func ParseStep(text string) (Step, error) {
	text = strings.TrimSpace(text)
	if m := bearerPattern.FindStringSubmatch(text); m != nil {
		return BearerStep{Encoding: Encoding(m[1])}, nil
	}
	if m := headerPattern.FindStringSubmatch(text); m != nil {
		return HeaderStep{Name: m[1]}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedStep, text)
}

// Plan is an ordered list of steps; the first one yielding a value wins
type Plan struct {
	steps []Step
}

// Parse builds a Plan from step texts. Unrecognized steps are logged and
// skipped; empty entries are ignored.
func Parse(texts []string) Plan {
	steps := make([]Step, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		step, err := ParseStep(text)
		if err != nil {
			logger.Warn("Skipping extraction step", "step", text, "error", err)
			continue
		}
		steps = append(steps, step)
	}
	return Plan{steps: steps}
}

// New builds a Plan from already parsed steps
func New(steps ...Step) Plan {
	return Plan{steps: steps}
}

// Steps returns the parsed steps in evaluation order
func (p Plan) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Evaluate runs the steps in order against the request headers
func (p Plan) Evaluate(h map[string]string) (string, bool, error) {
	for _, step := range p.steps {
		value, found, err := step.Extract(h)
		if err != nil {
			return "", false, fmt.Errorf("extraction step %s: %w", step, err)
		}
		if found {
			return value, true, nil
		}
	}
	return "", false, nil
}
