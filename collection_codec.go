package reactive

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the elements only.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(c.items)
}

// UnmarshalJSON replaces the elements, publishing a single reset.
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	c.replace(items)
	return nil
}

func (c *Collection[T]) MarshalYAML() (any, error) {
	if c.items == nil {
		return []T{}, nil
	}

	return c.items, nil
}

func (c *Collection[T]) UnmarshalYAML(node *yaml.Node) error {
	var items []T
	if err := node.Decode(&items); err != nil {
		return err
	}

	c.replace(items)
	return nil
}
