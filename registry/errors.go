package registry

import "fmt"

// ResolutionConflict reports two member definitions claiming the same
// erased slot of the composed type. Matcher overlap is not a conflict;
// distinct definitions are.
type ResolutionConflict struct {
	TypeName string // internal name of the composed type
	Member   string // erased key of the contested slot
	First    string // diagnostic for the earlier claimant
	Second   string // diagnostic for the later claimant
}

func (e *ResolutionConflict) Error() string {
	return fmt.Sprintf("registry: %s on %s claimed twice: %s vs %s",
		e.Member, e.TypeName, e.First, e.Second)
}
