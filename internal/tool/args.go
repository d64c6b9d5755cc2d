package tool

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeArgs decodes raw tool arguments into the request struct pointed to
// by out. Numbers arrive as float64 from JSON and are converted to integer
// fields; strings are never coerced into numbers.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func intPtr(v int) *int { return &v }
