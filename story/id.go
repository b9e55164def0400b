package story

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produce identificatori univoci
type IDGenerator func() string

// UUIDGenerator genera UUID v4 casuali
func UUIDGenerator() string {
	return uuid.NewString()
}

// SequentialIDs restituisce un generatore deterministico: prefix-1, prefix-2, ...
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// NewIFID genera un IFID nel formato maiuscolo usato dagli archivi
func NewIFID(gen IDGenerator) string {
	return strings.ToUpper(gen())
}
