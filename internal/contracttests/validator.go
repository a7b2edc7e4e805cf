package contracttests

import (
	"encoding/json"
	"fmt"

	"github.com/carzh/robot-color-picker/internal/color"
)

// JSONRPCEnvelope validates JSON-RPC 2.0 envelope structure
type JSONRPCEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// ValidateEnvelope validates JSON-RPC 2.0 envelope compliance
func ValidateEnvelope(data []byte) error {
	var envelope JSONRPCEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if envelope.JSONRPC != "2.0" {
		return fmt.Errorf("jsonrpc must be '2.0', got '%s'", envelope.JSONRPC)
	}
	if envelope.ID == nil {
		return fmt.Errorf("id field is required")
	}

	// result and error are mutually exclusive
	hasResult := len(envelope.Result) > 0
	hasError := len(envelope.Error) > 0
	if hasResult && hasError {
		return fmt.Errorf("both result and error cannot be present")
	}
	if !hasResult && !hasError {
		return fmt.Errorf("either result or error must be present")
	}
	return nil
}

// ValidateColorLabel checks that v is one of the canonical labels.
func ValidateColorLabel(v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("color must be a string, got %T", v)
	}
	if _, err := color.ParseColor(s); err != nil {
		return err
	}
	return nil
}

// ValidateResolution validates a resolve_color result object
func ValidateResolution(result map[string]interface{}) error {
	if err := ValidateColorLabel(result["color"]); err != nil {
		return fmt.Errorf("resolution: %w", err)
	}

	switch result["source"] {
	case "keyword":
		if _, ok := result["scores"]; ok {
			return fmt.Errorf("keyword resolution must not carry scores")
		}
	case "classifier":
		scores, ok := result["scores"].([]interface{})
		if !ok || len(scores) == 0 {
			return fmt.Errorf("classifier resolution must carry scores")
		}
		for i, s := range scores {
			if _, ok := s.(float64); !ok {
				return fmt.Errorf("score %d must be numeric", i)
			}
		}
	default:
		return fmt.Errorf("source must be keyword or classifier, got %v", result["source"])
	}
	return nil
}

// ValidateMatchResult validates a match result object. A position is present
// exactly when found is true, and index is -1 when nothing matched.
func ValidateMatchResult(result map[string]interface{}) error {
	found, ok := result["found"].(bool)
	if !ok {
		return fmt.Errorf("found field must be a boolean")
	}
	if err := ValidateColorLabel(result["color"]); err != nil {
		return fmt.Errorf("match: %w", err)
	}
	index, ok := result["index"].(float64)
	if !ok {
		return fmt.Errorf("index field must be numeric")
	}

	position, hasPosition := result["position"]
	if found {
		if !hasPosition {
			return fmt.Errorf("found match must carry a position")
		}
		if err := validatePosition(position); err != nil {
			return err
		}
		if index < 0 {
			return fmt.Errorf("found match must have a non-negative index, got %v", index)
		}
		return nil
	}
	if hasPosition {
		return fmt.Errorf("unmatched result must not carry a position")
	}
	if index != -1 {
		return fmt.Errorf("unmatched result must have index -1, got %v", index)
	}
	return nil
}

func validatePosition(v interface{}) error {
	pos, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("position must be an object")
	}
	for _, axis := range []string{"x", "y", "z"} {
		if _, ok := pos[axis].(float64); !ok {
			return fmt.Errorf("position.%s must be numeric", axis)
		}
	}
	return nil
}

// ValidateDecision validates a pick result object
func ValidateDecision(result map[string]interface{}) error {
	if _, ok := result["command"].(string); !ok {
		return fmt.Errorf("command field must be a string")
	}
	resolution, ok := result["resolution"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("resolution field must be an object")
	}
	if err := ValidateResolution(resolution); err != nil {
		return err
	}
	match, ok := result["match"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("match field must be an object")
	}
	if err := ValidateMatchResult(match); err != nil {
		return err
	}
	if match["color"] != resolution["color"] {
		return fmt.Errorf("match color %v differs from resolved color %v", match["color"], resolution["color"])
	}
	if _, ok := result["visible"].(float64); !ok {
		return fmt.Errorf("visible field must be numeric")
	}
	return nil
}

// ValidateArrayStringResult validates that a result is an array of strings
func ValidateArrayStringResult(result json.RawMessage) error {
	var arr []string
	if err := json.Unmarshal(result, &arr); err != nil {
		return fmt.Errorf("result must be array of strings: %w", err)
	}
	return nil
}

// ValidateErrorResponse validates JSON-RPC error structure
func ValidateErrorResponse(errorData json.RawMessage) error {
	var errorObj map[string]interface{}
	if err := json.Unmarshal(errorData, &errorObj); err != nil {
		return fmt.Errorf("error must be an object: %w", err)
	}

	code, hasCode := errorObj["code"]
	if !hasCode {
		return fmt.Errorf("error object must have 'code' field")
	}
	message, hasMessage := errorObj["message"]
	if !hasMessage {
		return fmt.Errorf("error object must have 'message' field")
	}
	if _, ok := code.(float64); !ok {
		return fmt.Errorf("error code must be numeric")
	}
	if _, ok := message.(string); !ok {
		return fmt.Errorf("error message must be string")
	}
	return nil
}

// CompareEnvelopes compares two JSON-RPC envelopes for structural equality
func CompareEnvelopes(expected, actual []byte) error {
	if err := ValidateEnvelope(expected); err != nil {
		return fmt.Errorf("expected envelope invalid: %w", err)
	}
	if err := ValidateEnvelope(actual); err != nil {
		return fmt.Errorf("actual envelope invalid: %w", err)
	}

	var expEnv, actEnv JSONRPCEnvelope
	if err := json.Unmarshal(expected, &expEnv); err != nil {
		return fmt.Errorf("failed to unmarshal expected: %w", err)
	}
	if err := json.Unmarshal(actual, &actEnv); err != nil {
		return fmt.Errorf("failed to unmarshal actual: %w", err)
	}

	if fmt.Sprintf("%v", expEnv.ID) != fmt.Sprintf("%v", actEnv.ID) {
		return fmt.Errorf("id mismatch: expected '%v', got '%v'", expEnv.ID, actEnv.ID)
	}

	if len(expEnv.Result) > 0 {
		if len(actEnv.Result) == 0 {
			return fmt.Errorf("expected result but got none")
		}
		return compareJSON(expEnv.Result, actEnv.Result)
	}
	if len(actEnv.Error) == 0 {
		return fmt.Errorf("expected error but got none")
	}
	var expErr, actErr struct {
		Code int `json:"code"`
	}
	_ = json.Unmarshal(expEnv.Error, &expErr)
	_ = json.Unmarshal(actEnv.Error, &actErr)
	if expErr.Code != actErr.Code {
		return fmt.Errorf("error code mismatch: expected %d, got %d", expErr.Code, actErr.Code)
	}
	return nil
}

// compareJSON checks that every field of expected is present in actual with
// the same value. Extra fields in actual are allowed.
func compareJSON(expected, actual json.RawMessage) error {
	var exp, act interface{}
	if err := json.Unmarshal(expected, &exp); err != nil {
		return fmt.Errorf("failed to unmarshal expected result: %w", err)
	}
	if err := json.Unmarshal(actual, &act); err != nil {
		return fmt.Errorf("failed to unmarshal actual result: %w", err)
	}
	return subset("result", exp, act)
}

func subset(path string, exp, act interface{}) error {
	switch e := exp.(type) {
	case map[string]interface{}:
		a, ok := act.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, act)
		}
		for k, v := range e {
			if err := subset(path+"."+k, v, a[k]); err != nil {
				return err
			}
		}
	case []interface{}:
		a, ok := act.([]interface{})
		if !ok || len(a) != len(e) {
			return fmt.Errorf("%s: expected array of %d, got %v", path, len(e), act)
		}
		for i := range e {
			if err := subset(fmt.Sprintf("%s[%d]", path, i), e[i], a[i]); err != nil {
				return err
			}
		}
	default:
		if exp != act {
			return fmt.Errorf("%s: expected %v, got %v", path, exp, act)
		}
	}
	return nil
}
