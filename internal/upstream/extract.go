package upstream

import (
	"log/slog"

	"github.com/handlegraph/followings-gateway/internal/domain"
)

// identifierProbes is the fixed priority order for locating the canonical
// identifier in an identity response. The id_str forms come first because the
// string rendering is authoritative for wide identifiers.
var identifierProbes = []probe[string]{
	identifierAt("data.id_str"),
	identifierAt("id_str"),
	identifierAt("data.id"),
	identifierAt("id"),
}

// relationArrayProbes is the fixed priority order for locating the relation
// array among the observed response shapes.
var relationArrayProbes = []probe[[]any]{
	arrayAt(""),
	arrayAt("data"),
	arrayAt("users"),
	arrayAt("data.users"),
}

// entryHandleProbes maps one relation entry to its handle.
var entryHandleProbes = []probe[string]{
	stringAt("screen_name"),
	stringAt("username"),
}

// ExtractIdentifier locates the canonical identifier in a 2xx identity
// response. A miss despite upstream-reported success is a schema error.
func ExtractIdentifier(res *Result) (string, *domain.APIError) {
	id, ok := firstMatch(res.Body.Value(), identifierProbes)
	if !ok {
		return "", ClassifySchema(res, "No user identifier found in identity response.")
	}
	return id, nil
}

// ExtractHandles locates the relation array in a 2xx relations response and
// maps each entry to a handle. Entries without a usable name field are
// dropped silently; an unrecognized payload shape is a schema error.
func ExtractHandles(res *Result, logger *slog.Logger) ([]string, *domain.APIError) {
	entries, ok := firstMatch(res.Body.Value(), relationArrayProbes)
	if !ok {
		return nil, ClassifySchema(res, "Unrecognized relations response shape.")
	}

	handles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if h, ok := firstMatch(entry, entryHandleProbes); ok {
			handles = append(handles, h)
		}
	}

	// Entries present but nothing extracted points at name-field drift; an
	// empty upstream list is normal and stays quiet.
	if len(entries) > 0 && len(handles) == 0 {
		logger.Warn("relation entries carried no extractable handle",
			slog.Int("entries", len(entries)),
		)
	}

	return handles, nil
}
