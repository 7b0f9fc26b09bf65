package auxiliary

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"

	"github.com/forgelabs/typeforge/impl"
)

// NamingStrategy assigns the binary name an auxiliary type will carry.
type NamingStrategy interface {
	Name(req *impl.AuxiliaryRequest) string
}

// HashNaming derives the name from the host type and a hash of the
// request's structural key. Equal inputs always name equally, which keeps
// whole compositions byte-for-byte reproducible. This is the default.
type HashNaming struct{}

func (HashNaming) Name(req *impl.AuxiliaryRequest) string {
	h := fnv.New64a()
	h.Write([]byte(req.StructuralKey()))
	return fmt.Sprintf("%s$Auxiliary$%016x", req.HostType, h.Sum64())
}

// RandomNaming suffixes with a fresh random token per request. Names never
// collide with preexisting classes, at the cost of reproducible output.
type RandomNaming struct{}

func (RandomNaming) Name(req *impl.AuxiliaryRequest) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s$Auxiliary$%s", req.HostType, token)
}
