package helm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

// AddRepo adds or replaces a chart repository and downloads its index,
// like `helm repo add --force-update`.
func (c *Client) AddRepo(name, url string) error {
	entry := &repo.Entry{Name: name, URL: url}
	if err := c.downloadIndex(entry); err != nil {
		return err
	}

	file, err := c.loadRepoFile()
	if err != nil {
		return err
	}
	file.Update(entry)

	path := c.settings.RepositoryConfig
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create helm config directory: %w", err)
	}
	if err := file.WriteFile(path, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	c.log.Info("added helm repository", "name", name, "url", url)
	return nil
}

// UpdateRepos refreshes the index of every configured repository.
func (c *Client) UpdateRepos() error {
	file, err := c.loadRepoFile()
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, entry := range file.Repositories {
		if err := c.downloadIndex(entry); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (c *Client) downloadIndex(entry *repo.Entry) error {
	r, err := repo.NewChartRepository(entry, getter.All(c.settings))
	if err != nil {
		return fmt.Errorf("invalid helm repository %s: %w", entry.Name, err)
	}
	r.CachePath = c.settings.RepositoryCache
	if _, err := r.DownloadIndexFile(); err != nil {
		return fmt.Errorf("failed to fetch index of %s (%s): %w", entry.Name, entry.URL, err)
	}
	return nil
}

func (c *Client) loadRepoFile() (*repo.File, error) {
	file, err := repo.LoadFile(c.settings.RepositoryConfig)
	if errors.Is(err, fs.ErrNotExist) {
		return repo.NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load helm repositories: %w", err)
	}
	return file, nil
}
