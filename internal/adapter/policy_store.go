package adapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// LoadPolicy reads a project policy YAML file. A missing file is not an
// error: callers fall back to the built-in defaults.
func LoadPolicy(fs SourceFSAdapter, path m.Path) (*m.Policy, bool, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read policy %s: %w", path, err)
	}

	var policy m.Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, false, fmt.Errorf("parse policy %s: %w", path, err)
	}

	return &policy, true, nil
}

// SavePolicy writes a policy file, used by `groundskeeper init` to emit the
// defaults for manual editing.
func SavePolicy(fs SourceFSAdapter, path m.Path, policy *m.Policy) error {
	data, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	return fs.WriteFileAtomic(path, data)
}
