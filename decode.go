package tablestate

import (
	"fmt"

	"github.com/sboagy/tablestate/internal/hydrate"
)

var partialDecoder = hydrate.NewDecoder(
	hydrate.WithPreHook[TableState](dropNulls),
	hydrate.WithDisallowUnknownFields[TableState](),
	hydrate.WithPostHook[TableState](func(_ hydrate.Context, state *TableState) error {
		return state.Validate()
	}),
)

// DecodePartial converts an untyped UI payload into a TableState for purpose.
// Unknown fields and invalid values are rejected; explicit nulls are treated
// as absent fields.
func DecodePartial(purpose Purpose, payload map[string]any) (TableState, error) {
	if !purpose.Valid() {
		return TableState{}, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
	state, err := partialDecoder.Decode(hydrate.Context{Purpose: string(purpose)}, payload)
	if err != nil {
		return TableState{}, fmt.Errorf("tablestate: decode %s state: %w", purpose, err)
	}
	return state, nil
}

func dropNulls(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for key, value := range payload {
		if value == nil {
			delete(payload, key)
		}
	}
	return payload, nil
}
