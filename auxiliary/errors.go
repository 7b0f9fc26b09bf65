package auxiliary

import (
	"fmt"
	"strings"
)

// CycleError reports a request chain that reached itself during
// materialization: planning the types in Requests re-required the first
// of them before it finished.
type CycleError struct {
	Requests []string // structural keys along the chain
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("auxiliary: request cycle: %s", strings.Join(e.Requests, " -> "))
}
