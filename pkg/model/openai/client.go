package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	modelpkg "github.com/cexll/chatloop-go/pkg/model"
)

const (
	flavorOpenAI = "openai"
	flavorAzure  = "azure"
)

// Ensure Provider satisfies the factory contract at compile time.
var _ modelpkg.Provider = (*Provider)(nil)

// Provider wires chat-completions-backed models into the factory. The same
// client speaks to api.openai.com, OpenAI-compatible gateways and Azure
// deployments; only authentication and endpoint layout differ per flavor.
type Provider struct {
	HTTPClient *http.Client
	flavor     string
}

// NewProvider builds a Provider for the plain OpenAI wire contract. When
// client is nil, a default client with sane timeouts is used.
func NewProvider(client *http.Client) *Provider {
	return &Provider{HTTPClient: client, flavor: flavorOpenAI}
}

// NewAzureProvider builds a Provider addressing an Azure OpenAI deployment.
func NewAzureProvider(client *http.Client) *Provider {
	return &Provider{HTTPClient: client, flavor: flavorAzure}
}

// Name advertises the provider identifier used by the factory.
func (p *Provider) Name() string {
	return p.flavor
}

// NewModel materializes a ChatModel configured according to cfg.
func (p *Provider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is required", p.flavor)
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = strings.TrimSpace(cfg.Name)
	}
	if modelName == "" {
		return nil, fmt.Errorf("%s model name is required", p.flavor)
	}

	opts := parseModelOptions(cfg.Extra)
	endpoint, err := p.buildEndpoint(cfg.BaseURL, modelName, opts)
	if err != nil {
		return nil, err
	}

	headers := p.buildDefaultHeaders(apiKey)
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		headers[k] = v
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(defaultHTTPTimeout) * time.Second}
	}

	return &ChatModel{
		client:   client,
		endpoint: endpoint,
		model:    modelName,
		headers:  headers,
		opts:     opts,
	}, nil
}

func (p *Provider) buildEndpoint(base, modelName string, opts modelOptions) (string, error) {
	switch p.flavor {
	case flavorAzure:
		trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
		if trimmed == "" {
			return "", errors.New("azure base_url is required")
		}
		deployment := opts.Deployment
		if deployment == "" {
			deployment = modelName
		}
		return trimmed + fmt.Sprintf(azureDeploymentFmt, deployment, opts.APIVersion), nil
	default:
		return sanitizeBaseURL(base) + completionsPath, nil
	}
}

func (p *Provider) buildDefaultHeaders(apiKey string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   userAgent,
	}
	if p.flavor == flavorAzure {
		headers["Api-Key"] = apiKey
	} else {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return headers
}

func sanitizeBaseURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	return trimmed
}
