package reactive

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Serializer turns values into text and back.
// Serialize must be deterministic for the content hash of a SerializedCollection to be stable.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(data string, v any) error
}

type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (JSONSerializer) Deserialize(data string, v any) error {
	return json.Unmarshal([]byte(data), v)
}

type YAMLSerializer struct{}

func (YAMLSerializer) Serialize(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (YAMLSerializer) Deserialize(data string, v any) error {
	return yaml.Unmarshal([]byte(data), v)
}
