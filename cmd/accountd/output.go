package main

import (
	"encoding/json"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

// printJSON writes v to the command output as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

// parseProfile decodes a JSON object given on the command line. An empty
// string yields nil.
func parseProfile(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var profile map[string]any
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, oops.Code("INVALID_PROFILE").Wrapf(err, "profile must be a JSON object")
	}
	if profile == nil {
		return nil, oops.Code("INVALID_PROFILE").Errorf("profile must be a JSON object")
	}
	return profile, nil
}

// describeError renders err for the operator. Resolution failures print
// their kind and public message; everything else prints the error chain.
func describeError(err error) string {
	kind, class := auth.Classify(err)
	if class != auth.ClassInternal {
		return fmt.Sprintf("%s: %s", kind, kind.Message())
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			return fmt.Sprintf("%v: %s", code, err.Error())
		}
	}
	return err.Error()
}
