// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// NextRevision returns the revision that follows rev. Revisions have the
// form "<generation>-<ulid>"; an empty rev starts at generation 1.
func NextRevision(rev string) (string, error) {
	gen, err := RevisionGeneration(rev)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(gen+1) + "-" + strings.ToLower(ulid.Make().String()), nil
}

// RevisionGeneration returns the generation number of rev, 0 for "".
func RevisionGeneration(rev string) (int, error) {
	if rev == "" {
		return 0, nil
	}
	genStr, _, found := strings.Cut(rev, "-")
	gen, err := strconv.Atoi(genStr)
	if !found || err != nil || gen < 1 {
		return 0, oops.Code("REVISION_INVALID").
			With("rev", rev).
			Errorf("malformed document revision")
	}
	return gen, nil
}
