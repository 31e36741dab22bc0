package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	moduleName    = "github.com/sensiblebit/entrakit"
	moduleVersion = "v0.1.0"

	apiVersion = "v1.0"

	// discoveryPageSize bounds each enumeration page; Graph caps $top at 999.
	discoveryPageSize = "999"
)

// CloudConfig holds the per-cloud endpoints needed to reach Microsoft Graph.
type CloudConfig struct {
	// Graph is the Microsoft Graph base URL.
	Graph string
	// Scope is the token scope requested for Graph calls.
	Scope string
	// Cloud configures credential acquisition (authority host).
	Cloud cloud.Configuration
}

// CloudConfiguration maps a cloud name (public, china, government) to its
// endpoints. Unknown or empty names fall back to the public cloud, matching
// the directory service's own default.
func CloudConfiguration(name string) CloudConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "china":
		return CloudConfig{
			Graph: "https://microsoftgraph.chinacloudapi.cn",
			Scope: "https://microsoftgraph.chinacloudapi.cn/.default",
			Cloud: cloud.AzureChina,
		}
	case "government":
		return CloudConfig{
			Graph: "https://graph.microsoft.us",
			Scope: "https://graph.microsoft.us/.default",
			Cloud: cloud.AzureGovernment,
		}
	default:
		return CloudConfig{
			Graph: "https://graph.microsoft.com",
			Scope: "https://graph.microsoft.com/.default",
			Cloud: cloud.AzurePublic,
		}
	}
}

// Options configures a Graph client.
type Options struct {
	// Cloud selects the Azure cloud: "public" (default), "china", or
	// "government".
	Cloud string

	// Endpoint overrides the Graph base URL. Used by tests.
	Endpoint string

	// Scope overrides the token scope. Used by tests.
	Scope string

	// ClientOptions carries transport, retry, and telemetry options for the
	// underlying pipeline.
	ClientOptions policy.ClientOptions
}

// Client implements Store against the Microsoft Graph REST API.
type Client struct {
	endpoint string
	pipeline runtime.Pipeline
}

// NewClient builds a Graph-backed Store authenticating with the given
// credential. Retry and backoff come from the pipeline's standard policies;
// the client adds none of its own.
func NewClient(cred azcore.TokenCredential, opts *Options) (*Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is required")
	}
	if opts == nil {
		opts = &Options{}
	}

	cc := CloudConfiguration(opts.Cloud)
	endpoint := cc.Graph
	if opts.Endpoint != "" {
		endpoint = opts.Endpoint
	}
	scope := cc.Scope
	if opts.Scope != "" {
		scope = opts.Scope
	}

	clientOpts := opts.ClientOptions
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{
			runtime.NewBearerTokenPolicy(cred, []string{scope}, nil),
		},
	}, &clientOpts)

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		pipeline: pl,
	}, nil
}

// collectionURL returns the versioned URL for an object collection.
func (c *Client) collectionURL(kind ObjectKind) string {
	return runtime.JoinPaths(c.endpoint, apiVersion, kind.collection())
}

// objectURL returns the versioned URL for a single object.
func (c *Client) objectURL(objectID string, kind ObjectKind) string {
	return runtime.JoinPaths(c.endpoint, apiVersion, kind.collection(), url.PathEscape(objectID))
}

// FindObjectID implements Store. It issues a filtered, top-1 list query for
// the application (client) ID and returns the store-assigned object ID.
func (c *Client) FindObjectID(ctx context.Context, appID string, kind ObjectKind) (string, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, c.collectionURL(kind))
	if err != nil {
		return "", err
	}
	// Single quotes inside an OData string literal are escaped by doubling.
	quoted := strings.ReplaceAll(appID, "'", "''")
	req.Raw().URL.RawQuery = url.Values{
		"$filter": []string{fmt.Sprintf("appId eq '%s'", quoted)},
		"$top":    []string{"1"},
		"$select": []string{"id"},
	}.Encode()

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying %s with appId %q: %w", kind, appID, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return "", fmt.Errorf("querying %s with appId %q: %w", kind, appID, runtime.NewResponseError(resp))
	}

	var page struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := runtime.UnmarshalAsJSON(resp, &page); err != nil {
		return "", fmt.Errorf("decoding %s list response: %w", kind, err)
	}
	if len(page.Value) == 0 || page.Value[0].ID == "" {
		return "", fmt.Errorf("%w: %s with appId %q", ErrNotFound, kind, appID)
	}
	return page.Value[0].ID, nil
}

// GetObject implements Store. Only the credential-bearing fields are
// selected so a later write cannot echo unrelated properties back.
func (c *Client) GetObject(ctx context.Context, objectID string, kind ObjectKind) (*Object, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, c.objectURL(objectID, kind))
	if err != nil {
		return nil, err
	}
	fields := "id,appId,keyCredentials,passwordCredentials"
	if kind == KindServicePrincipal {
		fields += ",preferredTokenSigningKeyThumbprint"
	}
	req.Raw().URL.RawQuery = url.Values{"$select": []string{fields}}.Encode()

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", kind, objectID, err)
	}
	if runtime.HasStatusCode(resp, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, objectID)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, fmt.Errorf("fetching %s %q: %w", kind, objectID, runtime.NewResponseError(resp))
	}

	var obj Object
	if err := runtime.UnmarshalAsJSON(resp, &obj); err != nil {
		return nil, fmt.Errorf("decoding %s %q: %w", kind, objectID, err)
	}
	return &obj, nil
}

// PatchCredentials implements Store. The collections are written wholesale:
// the directory replaces, never merges, so the caller must supply every
// record it wants to survive the write.
func (c *Client) PatchCredentials(ctx context.Context, objectID string, kind ObjectKind, keys []KeyCredential, passwords []PasswordCredential) error {
	if keys == nil {
		keys = []KeyCredential{}
	}
	body := map[string]any{"keyCredentials": keys}
	if passwords != nil {
		body["passwordCredentials"] = passwords
	}
	return c.patch(ctx, objectID, kind, body)
}

// PatchPreferredSigner implements Store.
func (c *Client) PatchPreferredSigner(ctx context.Context, objectID string, thumbprint string) error {
	body := map[string]any{"preferredTokenSigningKeyThumbprint": thumbprint}
	return c.patch(ctx, objectID, KindServicePrincipal, body)
}

func (c *Client) patch(ctx context.Context, objectID string, kind ObjectKind, body map[string]any) error {
	req, err := runtime.NewRequest(ctx, http.MethodPatch, c.objectURL(objectID, kind))
	if err != nil {
		return err
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return err
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return fmt.Errorf("patching %s %q: %w", kind, objectID, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusNoContent) {
		return fmt.Errorf("patching %s %q: %w", kind, objectID, runtime.NewResponseError(resp))
	}
	return nil
}

// ListObjects implements Store. Enumeration follows @odata.nextLink until
// the collection is exhausted, projecting only the discovery fields.
func (c *Client) ListObjects(ctx context.Context, kind ObjectKind) ([]ObjectRef, error) {
	pageURL := c.collectionURL(kind)
	query := url.Values{
		"$top":    []string{discoveryPageSize},
		"$select": []string{"id,appId,displayName"},
	}.Encode()

	var refs []ObjectRef
	for pageURL != "" {
		req, err := runtime.NewRequest(ctx, http.MethodGet, pageURL)
		if err != nil {
			return nil, err
		}
		if req.Raw().URL.RawQuery == "" {
			req.Raw().URL.RawQuery = query
		}

		resp, err := c.pipeline.Do(req)
		if err != nil {
			return nil, fmt.Errorf("listing %s objects: %w", kind, err)
		}
		if !runtime.HasStatusCode(resp, http.StatusOK) {
			return nil, fmt.Errorf("listing %s objects: %w", kind, runtime.NewResponseError(resp))
		}

		var page struct {
			Value    []ObjectRef `json:"value"`
			NextLink string      `json:"@odata.nextLink"`
		}
		if err := runtime.UnmarshalAsJSON(resp, &page); err != nil {
			return nil, fmt.Errorf("decoding %s list page: %w", kind, err)
		}
		refs = append(refs, page.Value...)
		pageURL = page.NextLink
	}
	return refs, nil
}
