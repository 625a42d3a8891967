package core

import (
	"encoding/json"
	"fmt"
)

// wirePart is the tagged serialization form of a Part. The closed part set
// maps onto a "type" discriminator so persisted events survive a reload.
type wirePart struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

const (
	wirePartText             = "text"
	wirePartFunctionCall     = "function_call"
	wirePartFunctionResponse = "function_response"
)

// MarshalJSON serializes content with a type tag per part.
func (c Content) MarshalJSON() ([]byte, error) {
	parts := make([]wirePart, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			parts = append(parts, wirePart{Type: wirePartText, Text: v.Text})
		case FunctionCallPart:
			fc := v.FunctionCall
			parts = append(parts, wirePart{Type: wirePartFunctionCall, FunctionCall: &fc})
		case FunctionResponsePart:
			fr := v.FunctionResponse
			parts = append(parts, wirePart{Type: wirePartFunctionResponse, FunctionResponse: &fr})
		default:
			return nil, fmt.Errorf("unknown content part type %T", p)
		}
	}
	return json.Marshal(struct {
		Role  string     `json:"role,omitempty"`
		Parts []wirePart `json:"parts"`
	}{Role: c.Role, Parts: parts})
}

// UnmarshalJSON rebuilds the closed part set from its tagged form.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string     `json:"role"`
		Parts []wirePart `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Role = raw.Role
	c.Parts = nil
	for _, wp := range raw.Parts {
		switch wp.Type {
		case wirePartText:
			c.Parts = append(c.Parts, TextPart{Text: wp.Text})
		case wirePartFunctionCall:
			if wp.FunctionCall == nil {
				return fmt.Errorf("function_call part without payload")
			}
			c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: *wp.FunctionCall})
		case wirePartFunctionResponse:
			if wp.FunctionResponse == nil {
				return fmt.Errorf("function_response part without payload")
			}
			c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: *wp.FunctionResponse})
		default:
			return fmt.Errorf("unknown content part type %q", wp.Type)
		}
	}
	return nil
}
