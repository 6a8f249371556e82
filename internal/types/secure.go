package types

// redactedPlaceholder replaces secret values in logs and serialized output.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values such as provider API keys. It overrides
// String() and MarshalJSON() to return a redacted placeholder, so secrets
// never leak through fmt functions, structured logs, or JSON output.
//
// Use Unmask() when the plaintext is genuinely needed (e.g., building an
// outbound Authorization header).
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret. Usage should be
// limited to constructing outbound credentials.
func (s SecretString) Unmask() string {
	return string(s)
}
