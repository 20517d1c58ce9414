package config

import "encoding/json"

const redactedPlaceholder = "[REDACTED]"

// SensitiveString holds secrets such as API keys. It redacts itself in
// String, JSON, and YAML output so credentials never land in logs or
// rendered configuration. Use Value to read the real content.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redactedPlaceholder
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}

func (s SensitiveString) MarshalYAML() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(redactedPlaceholder), nil
}
