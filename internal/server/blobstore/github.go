package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

// branch is the only branch the gateway writes to.
const branch = "main"

// GithubClient implements Client over the GitHub contents API. A fresh
// API client is built per call because every store carries its own token.
type GithubClient struct {
	// baseURL overrides the API endpoint, for tests and GHE setups.
	baseURL string
}

// NewGithubClient constructs a client against api.github.com.
func NewGithubClient() *GithubClient {
	return &GithubClient{}
}

// NewGithubClientWithBaseURL constructs a client against a custom API
// endpoint.
func NewGithubClientWithBaseURL(baseURL string) *GithubClient {
	return &GithubClient{baseURL: baseURL}
}

func (c *GithubClient) api(token string) (*github.Client, error) {
	gh := github.NewClient(nil).WithAuthToken(token)
	if c.baseURL != "" {
		return gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
	}
	return gh, nil
}

// mapError translates go-github failures into the package taxonomy.
func mapError(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return ErrAlreadyExists
		}
	}
	return err
}

func (c *GithubClient) Get(ctx context.Context, ref StoreRef, path string) (*Object, error) {
	gh, err := c.api(ref.Token)
	if err != nil {
		return nil, err
	}

	file, _, _, err := gh.Repositories.GetContents(ctx, ref.Owner, ref.Name, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return nil, mapError(err)
	}
	if file == nil {
		// A directory listing came back; the path is not a blob.
		return nil, ErrNotFound
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}

	return &Object{Path: path, SHA: file.GetSHA(), Content: []byte(content)}, nil
}

func (c *GithubClient) Put(ctx context.Context, ref StoreRef, path string, content []byte, message, sha string) (*PutResult, error) {
	gh, err := c.api(ref.Token)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}

	resp, _, err := gh.Repositories.CreateFile(ctx, ref.Owner, ref.Name, path, opts)
	if err != nil {
		return nil, mapError(err)
	}

	return &PutResult{SHA: resp.Content.GetSHA()}, nil
}

func (c *GithubClient) Delete(ctx context.Context, ref StoreRef, path, sha, message string) error {
	gh, err := c.api(ref.Token)
	if err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(sha),
		Branch:  github.String(branch),
	}

	if _, _, err := gh.Repositories.DeleteFile(ctx, ref.Owner, ref.Name, path, opts); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GithubClient) StoreExists(ctx context.Context, ref StoreRef) (bool, error) {
	gh, err := c.api(ref.Token)
	if err != nil {
		return false, err
	}

	_, _, err = gh.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err == nil {
		return true, nil
	}
	if errors.Is(mapError(err), ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CreateStore provisions a private auto-initialized repository. The
// organization create is tried first; a personal create is the fallback
// because the owner may be a user account rather than an org.
func (c *GithubClient) CreateStore(ctx context.Context, ref StoreRef, description string) error {
	gh, err := c.api(ref.Token)
	if err != nil {
		return err
	}

	repo := &github.Repository{
		Name:        github.String(ref.Name),
		Description: github.String(description),
		Private:     github.Bool(true),
		AutoInit:    github.Bool(true),
	}

	if _, _, err := gh.Repositories.Create(ctx, ref.Owner, repo); err == nil {
		return nil
	}

	if _, _, err := gh.Repositories.Create(ctx, "", repo); err != nil {
		return mapError(err)
	}
	return nil
}
