// pattern: Imperative Shell

package discovery

import (
	"context"
)

// Find scans root, classifies every match and returns the environments
// largest first.
func Find(ctx context.Context, s *Scanner, c *Classifier, root string, opts Options) ([]Environment, error) {
	paths, err := s.Scan(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	envs, err := c.ClassifyAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	SortBySize(envs)
	return envs, nil
}
