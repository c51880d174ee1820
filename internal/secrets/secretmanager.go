package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// SecretManagerResolver reads the latest version of each secret from Google
// Secret Manager. Values are cached per name for the life of the process;
// rotating a secret requires a new revision, same as a bound env secret.
type SecretManagerResolver struct {
	svc     *secretmanager.Service
	project string

	mu    sync.Mutex
	cache map[string]string
}

// NewSecretManagerResolver creates a resolver for secrets in project.
func NewSecretManagerResolver(ctx context.Context, project string, opts ...option.ClientOption) (*SecretManagerResolver, error) {
	if project == "" {
		return nil, fmt.Errorf("secret manager: project id is required")
	}
	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secret manager: %w", err)
	}
	return &SecretManagerResolver{
		svc:     svc,
		project: project,
		cache:   make(map[string]string),
	}, nil
}

// Resolve returns the payload of projects/{project}/secrets/{name}/versions/latest.
func (r *SecretManagerResolver) Resolve(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	v, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return v, nil
	}

	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.project, name)
	resp, err := r.svc.Projects.Secrets.Versions.Access(resource).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("access %s: %w", name, err)
	}
	if resp.Payload == nil {
		return "", fmt.Errorf("%w: %s has no payload", ErrNotFound, name)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	v = string(data)

	r.mu.Lock()
	r.cache[name] = v
	r.mu.Unlock()
	return v, nil
}
